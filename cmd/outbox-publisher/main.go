package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/metrics"
	"github.com/swiftpdv/pdv-backend/pkg/migrate"
	"github.com/swiftpdv/pdv-backend/pkg/outbox"
	"github.com/swiftpdv/pdv-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	boot := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(boot, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(boot, "failed to load config", err)
		return err
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(boot, cfg.DB, logg)
	if err != nil {
		logg.Error(boot, "failed to bootstrap database", err)
		return err
	}
	if err := migrate.MaybeRunDev(boot, cfg, logg, dbClient); err != nil {
		logg.Error(boot, "failed to run dev migrations", err)
		return multierr.Append(err, dbClient.Close())
	}

	sink, err := pubsub.Dial(boot, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(boot, "failed to bootstrap pubsub", err)
		return multierr.Append(err, dbClient.Close())
	}
	defer func() {
		if err := multierr.Combine(sink.Close(), dbClient.Close()); err != nil {
			logg.Error(boot, "error closing outbox publisher dependencies", err)
		}
	}()

	registry := prometheus.NewRegistry()
	store := outbox.NewRepository(dbClient.DB())
	relay, err := outbox.NewRelay(dbClient, store, sink, outbox.RelayOptions{
		Topic:        cfg.PubSub.SalesTopic,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		PollInterval: time.Duration(cfg.Outbox.PollIntervalMS) * time.Millisecond,
	}, metrics.NewPublisherMetrics(registry), logg)
	if err != nil {
		logg.Error(boot, "failed to create outbox relay", err)
		return err
	}

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"topic": cfg.PubSub.SalesTopic,
	})

	pending, err := store.CountPending(ctx)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "could not count pending outbox rows")
	}
	logg.Info(logg.WithField(ctx, "pending", pending), "starting outbox publisher")

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.App.ListenPort(),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}
