package application

import (
	"context"

	catalog "github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

// CatalogReader is the slice of the catalog service placement depends on.
type CatalogReader interface {
	GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error)
}

type OrderRepository interface {
	// DecrementStock applies every adjustment or fails with an
	// *domain.OutOfStockError naming the products that fell short.
	DecrementStock(ctx context.Context, adjustments []domain.StockAdjustment) error
	// Insert assigns the order id.
	Insert(ctx context.Context, o domain.Order) (domain.Order, error)
	Get(ctx context.Context, id int64) (domain.Order, error)
}

type EventWriter interface {
	Append(ctx context.Context, ev outbox.Event) error
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
