package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

const aggregateProduct = "product"

var tracer = otel.Tracer("storefront/catalog")

type Service struct {
	log    *slog.Logger
	repo   ProductRepository
	events EventWriter
	tx     Transactor
}

func NewService(log *slog.Logger, repo ProductRepository, events EventWriter, tx Transactor) *Service {
	return &Service{log: log, repo: repo, events: events, tx: tx}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.ListProducts")
	defer span.End()

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// CreateProduct inserts p unless a product with the same name exists, in which
// case it returns domain.ErrDuplicateName.
func (s *Service) CreateProduct(ctx context.Context, p domain.NewProduct) (domain.Product, error) {
	ctx, span := tracer.Start(ctx, "catalog.CreateProduct")
	defer span.End()

	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}

	var created domain.Product
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.repo.FindByName(ctx, p.Name)
		switch {
		case err == nil:
			return domain.ErrDuplicateName
		case !errors.Is(err, domain.ErrProductNotFound):
			return fmt.Errorf("find product by name: %w", err)
		}

		created, err = s.repo.Insert(ctx, p)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateName) {
				return err
			}
			return fmt.Errorf("insert product: %w", err)
		}

		ev, err := outbox.NewEvent(aggregateProduct, strconv.FormatInt(created.ID, 10), domain.EventProductCreated,
			domain.ProductCreated{ProductID: created.ID, Name: created.Name, Price: created.Price, Stock: created.Stock},
			tracing.Traceparent(ctx))
		if err != nil {
			return err
		}
		return s.events.Append(ctx, ev)
	})
	if err != nil {
		return domain.Product{}, err
	}

	span.SetAttributes(attribute.Int64("product.id", created.ID))
	s.log.InfoContext(ctx, "product created", "product_id", created.ID, "name", created.Name)
	return created, nil
}

// GetProductsByIDs returns the products among ids that exist, in no
// particular order.
func (s *Service) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	products, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	return products, nil
}
