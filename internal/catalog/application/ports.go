package application

import (
	"context"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type ProductRepository interface {
	// List returns every product ordered by id.
	List(ctx context.Context) ([]domain.Product, error)
	// FindByName returns domain.ErrProductNotFound when no product has name.
	FindByName(ctx context.Context, name string) (domain.Product, error)
	Insert(ctx context.Context, p domain.NewProduct) (domain.Product, error)
	// GetByIDs skips ids that do not exist. Inside a transaction the returned
	// rows stay locked until it ends.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
}

type EventWriter interface {
	Append(ctx context.Context, ev outbox.Event) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
