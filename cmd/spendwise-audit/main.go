package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/cli"
	applog "spendwise/internal/log"
	"spendwise/internal/worker"
)

const (
	summaryInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	logger.Info("Starting spendwise audit worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", "error", err)
		os.Exit(1)
	}

	audit := worker.NewAuditWorker(logger.WithComponent(applog.ComponentAMQP).Logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(shutdownCtx context.Context) {
		audit.LogSummary(shutdownCtx)
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeIngestion(gctx, audit.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(summaryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				audit.LogSummary(gctx)
			}
		}
	})

	logger.Info("Audit worker started, waiting for ingestion events")
	if err := g.Wait(); err != nil {
		logger.Error("Audit worker stopped", "error", err)
		audit.LogSummary(context.Background())
		_ = client.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
