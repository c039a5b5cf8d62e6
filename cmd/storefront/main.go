package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/dmehra2102/storefront/internal/app"
	"github.com/dmehra2102/storefront/internal/config"
	"github.com/dmehra2102/storefront/pkg/logging"
	"github.com/dmehra2102/storefront/pkg/shutdown"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(logging.Options{Level: cfg.App.LogLevel, File: cfg.App.LogFile}).With("service", cfg.App.Name)

	if err := run(cfg, log); err != nil {
		log.Error("storefront exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.App.Name, cfg.Tracing.Endpoint, log)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return err
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      a.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.Relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	err = shutdown.Drain(cfg.HTTP.ShutdownTimeout,
		srv.Shutdown,
		func(context.Context) error { wg.Wait(); return nil },
		func(context.Context) error { return a.Close() },
		tp.Shutdown,
	)
	select {
	case sErr := <-serveErr:
		err = errors.Join(sErr, err)
	default:
	}
	if err == nil {
		log.Info("storefront shutdown complete")
	}
	return err
}
