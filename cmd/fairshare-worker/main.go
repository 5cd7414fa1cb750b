package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fairshare/internal/cli"
	applog "fairshare/internal/log"
	"fairshare/internal/services"
	"fairshare/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker, os.Stdout)
	logger.Info("Starting fairshare-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer res.Close()

	if res.Exporter == nil {
		logger.Info("No spreadsheet configured - nothing to export, exiting")
		return
	}

	exports := services.NewExportProcessor(res.Backend, res.Exporter, services.ExportProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	}, logger)
	periodWorker := worker.NewPeriodWorker(res.Backend, exports, cfg.SyncBatchSize, logger)

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := cli.InitAMQP(logger, cfg)
	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(context.Context) {
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
	})

	// Catch rows whose PeriodClosed message never arrived
	logger.Info("Performing startup export check...")
	if err := periodWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup export check", applog.FieldError, err)
	}

	if consumer != nil {
		go func() {
			if err := consumer.ConsumePeriodClosed(ctx, periodWorker.HandlePeriodClosed); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
				cancel()
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - relying on periodic export scan")
	}

	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		retryTicker := time.NewTicker(24 * time.Hour)
		defer retryTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := periodWorker.ProcessPendingExports(ctx); err != nil {
					logger.Error("Periodic export failed", applog.FieldError, err)
				}
			case <-retryTicker.C:
				if n := exports.Parked(); n > 0 {
					logger.Info("Releasing parked exports for retry", applog.FieldCount, n)
					exports.RetryParked()
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
