package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/platform/postgres"
)

const productColumns = `id, name, description, price, stock, created_at`

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *Repository) FindByName(ctx context.Context, name string) (domain.Product, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
	if err != nil {
		return domain.Product{}, err
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) Insert(ctx context.Context, np domain.NewProduct) (domain.Product, error) {
	p := domain.Product{Name: np.Name, Description: np.Description, Price: np.Price, Stock: np.Stock}
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		np.Name, np.Description, np.Price, np.Stock).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			r.log.WarnContext(ctx, "product name taken by a concurrent insert", "name", np.Name)
			return domain.Product{}, domain.ErrDuplicateName
		}
		return domain.Product{}, err
	}
	return p, nil
}

// GetByIDs locks the selected rows when ctx carries a transaction. Rows are
// locked in id order so concurrent placements cannot deadlock each other.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`
	if postgres.InTx(ctx) {
		q += ` FOR UPDATE`
	}
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]domain.Product, error) {
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.CollectableRow) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)
	return p, err
}
