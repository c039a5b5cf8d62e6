// Package app assembles the storefront from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	catalogapp "github.com/dmehra2102/storefront/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/storefront/internal/catalog/infrastructure/http"
	"github.com/dmehra2102/storefront/internal/config"
	orderapp "github.com/dmehra2102/storefront/internal/order/application"
	orderhttp "github.com/dmehra2102/storefront/internal/order/infrastructure/http"
	"github.com/dmehra2102/storefront/internal/platform/httpx"
	"github.com/dmehra2102/storefront/pkg/idempotency"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

type App struct {
	Handler http.Handler
	Relay   *outbox.Relay

	storage *storage
	closers []func() error
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{storage: st}
	a.closers = append(a.closers, func() error { st.close(); return nil })

	var producer outbox.Producer = outbox.LogProducer{Log: log}
	if len(cfg.Kafka.Brokers) > 0 {
		w := outbox.NewKafkaWriter(cfg.Kafka.Brokers)
		producer = w
		a.closers = append(a.closers, w.Close)
	} else {
		log.Warn("no kafka brokers configured; outbox events are only logged")
	}
	a.Relay = outbox.NewRelay(log, st.events, outbox.NewDispatcher(log, producer, cfg.Kafka.Topic), cfg.Outbox.RelayID,
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
		outbox.WithInterval(cfg.Outbox.Interval),
		outbox.WithLease(cfg.Outbox.Lease),
		outbox.WithMaxRetries(cfg.Outbox.MaxRetries),
	)

	var orderMW []func(http.Handler) http.Handler
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = a.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		orderMW = append(orderMW, idempotency.Middleware(idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL, cfg.Redis.IdempotencyLockTTL), log))
	}

	catalogSvc := catalogapp.NewService(log, st.products, st.events, st.tx)
	orderSvc := orderapp.NewService(log, catalogSvc, st.orders, st.events, st.tx)

	reg := prometheus.NewRegistry()
	metrics := httpx.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, httpx.RequestID, httpx.Logging(log), metrics.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{httpx.RequestIDHeader, idempotency.ReplayedHeader},
	}))

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.HandlerFor(prometheus.Gatherers{reg, prometheus.DefaultGatherer}, promhttp.HandlerOpts{}))
	r.Mount("/products", cataloghttp.NewHandler(log, catalogSvc).Routes())
	r.Mount("/orders", orderhttp.NewHandler(log, orderSvc).Routes(orderMW...))

	a.Handler = r
	return a, nil
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := a.storage.ping(r.Context()); err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
