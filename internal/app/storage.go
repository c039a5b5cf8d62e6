package app

import (
	"context"
	"fmt"
	"log/slog"

	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	catalogpg "github.com/dmehra2102/storefront/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/config"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	orderpg "github.com/dmehra2102/storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/platform/memory"
	"github.com/dmehra2102/storefront/internal/platform/migrations"
	"github.com/dmehra2102/storefront/internal/platform/postgres"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type eventStore interface {
	catalogapp.EventWriter
	outbox.Store
}

type storage struct {
	products catalogapp.ProductRepository
	orders   orderapp.OrderRepository
	events   eventStore
	tx       interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}
	ping  func(ctx context.Context) error
	close func()
}

func openStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		m := memory.New()
		log.Warn("using in-memory storage; data is lost on exit")
		return &storage{
			products: m.Catalog(),
			orders:   m.Orders(),
			events:   m.Outbox(),
			tx:       m,
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.Postgres.Migrate {
			if err := migrations.Up(cfg.Postgres.URL); err != nil {
				return nil, err
			}
			log.Info("database migrated")
		}
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		return &storage{
			products: catalogpg.NewRepository(log, pool),
			orders:   orderpg.NewRepository(log, pool),
			events:   postgres.NewOutboxStore(log, pool),
			tx:       postgres.NewTransactor(pool),
			ping:     pool.Ping,
			close:    pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
