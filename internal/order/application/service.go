package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const aggregateOrder = "order"

var tracer = otel.Tracer("storefront/order")

type Service struct {
	log     *slog.Logger
	catalog CatalogReader
	repo    OrderRepository
	events  EventWriter
	tx      Transactor
}

func NewService(log *slog.Logger, catalog CatalogReader, repo OrderRepository, events EventWriter, tx Transactor) *Service {
	return &Service{log: log, catalog: catalog, repo: repo, events: events, tx: tx}
}

// CreateOrder places an order in a single transaction: the referenced products
// are read (and locked, where the store supports it), every line is checked
// against them, and only then are stock, order and OrderCreated event written.
// Any rejection leaves the store untouched.
func (s *Service) CreateOrder(ctx context.Context, status domain.OrderStatus, lines []domain.LineItem) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.CreateOrder")
	defer span.End()

	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	if len(lines) == 0 {
		return domain.Order{}, domain.ErrNoLineItems
	}

	var created domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		found, err := s.catalog.GetProductsByIDs(ctx, domain.ProductIDs(lines))
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		byID := make(map[int64]catalog.Product, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}

		placement, err := domain.Plan(lines, byID)
		if err != nil {
			return err
		}
		if err := s.repo.DecrementStock(ctx, placement.Adjustments); err != nil {
			if errors.Is(err, domain.ErrOrderValidation) {
				return err
			}
			return fmt.Errorf("decrement stock: %w", err)
		}

		created, err = s.repo.Insert(ctx, domain.NewOrder(status, lines, placement.Total))
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		ev, err := outbox.NewEvent(aggregateOrder, strconv.FormatInt(created.ID, 10), domain.EventOrderCreated,
			domain.NewOrderCreated(created), tracing.Traceparent(ctx))
		if err != nil {
			return err
		}
		if err := s.events.Append(ctx, ev); err != nil {
			return fmt.Errorf("append order event: %w", err)
		}
		return nil
	})
	if err != nil {
		s.reject(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Order{}, err
	}

	ordersPlaced.WithLabelValues(string(created.Status)).Inc()
	span.SetAttributes(attribute.Int64("order.id", created.ID), attribute.String("order.total", created.TotalPrice.String()))
	s.log.InfoContext(ctx, "order created", "order_id", created.ID, "total_price", created.TotalPrice.String(), "lines", len(created.LineItems))
	return created, nil
}

func (s *Service) reject(ctx context.Context, err error) {
	var (
		notFound   *domain.ProductNotFoundError
		outOfStock *domain.OutOfStockError
	)
	switch {
	case errors.As(err, &notFound):
		ordersRejected.WithLabelValues("product_not_found").Inc()
		s.log.InfoContext(ctx, "order rejected", "reason", "product_not_found", "product_id", notFound.ProductID)
	case errors.As(err, &outOfStock):
		ordersRejected.WithLabelValues("out_of_stock").Inc()
		s.log.InfoContext(ctx, "order rejected", "reason", "out_of_stock", "product_ids", outOfStock.ProductIDs)
	case errors.Is(err, domain.ErrNegativeQuantity):
		ordersRejected.WithLabelValues("invalid_quantity").Inc()
	default:
		s.log.ErrorContext(ctx, "order placement failed", "err", err)
	}
}

func (s *Service) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.GetOrder")
	defer span.End()

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}
