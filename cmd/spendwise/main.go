package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/analysis"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	apphttp "spendwise/internal/http"
	"spendwise/internal/ingest"
	applog "spendwise/internal/log"
	"spendwise/internal/session"
	"spendwise/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	logger.Info("Starting spendwise",
		"port", cfg.Port,
		"session_backend", cfg.SessionBackend,
		"amqp_enabled", cfg.AMQPEnabled())

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid session backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).
		CreateStore(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create session store", "error", err, "backend", cfg.SessionBackend)
		os.Exit(1)
	}

	janitor, err := worker.NewJanitor(result.Store, cfg.SessionJanitorSchedule,
		logger.WithComponent(applog.ComponentJanitor).Logger)
	if err != nil {
		logger.Error("Failed to create session janitor", "error", err, "schedule", cfg.SessionJanitorSchedule)
		_ = result.Cleanup()
		os.Exit(1)
	}

	var events amqp.Publisher = amqp.NopPublisher{}
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ingestion events disabled", "error", err)
		} else {
			events = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Sessions:           session.NewManager(result.Store, cfg.SessionTTL),
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ingest: ingest.Options{
			DayFirst: cfg.DateDayFirst,
			MaxRows:  cfg.MaxRows,
		},
		Tips:    analysis.NewTipPicker(nil),
		Events:  events,
		Logger:  logger.WithComponent(applog.ComponentHTTP),
		Janitor: janitor,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		_ = events.Close()
		_ = result.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		janitor.Stop(shutdownCtx)
		if err := events.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Session store close error", "error", err)
		}
	})

	janitor.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Sessions persisted by a previous run may already be stale.
		n, err := janitor.RunOnce(gctx)
		if err != nil {
			logger.Warn("Startup session sweep failed", "error", err)
			return nil
		}
		logger.Info("Startup session sweep complete", "swept", n)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		janitor.Stop(context.Background())
		_ = events.Close()
		_ = result.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
