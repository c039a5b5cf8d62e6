package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/platform/postgres"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// DecrementStock queues one guarded update per adjustment. An update that
// matches no row means the stock moved below the requested quantity; the
// caller's transaction must then be rolled back.
func (r *Repository) DecrementStock(ctx context.Context, adjustments []domain.StockAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range adjustments {
		batch.Queue(`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`, a.ProductID, a.Quantity)
	}

	results := postgres.Conn(ctx, r.pool).SendBatch(ctx, batch)
	var short []int64
	for _, a := range adjustments {
		ct, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return fmt.Errorf("decrement product %d: %w", a.ProductID, err)
		}
		if ct.RowsAffected() == 0 {
			short = append(short, a.ProductID)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	if len(short) > 0 {
		r.log.WarnContext(ctx, "stock changed under placement", "product_ids", short)
		return &domain.OutOfStockError{ProductIDs: short}
	}
	return nil
}

func (r *Repository) Insert(ctx context.Context, o domain.Order) (domain.Order, error) {
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO orders (line_items, total_price, status, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		o.LineItems, o.TotalPrice, string(o.Status), o.CreatedAt).Scan(&o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, line_items, total_price, status, created_at FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.LineItems, &o.TotalPrice, &status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrOrderNotFound)
	}
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}
