package main

import (
	"context"
	"flag"
	"os"
	"time"

	"fairshare/internal/cli"
	applog "fairshare/internal/log"
	"fairshare/internal/services"
)

func main() {
	once := flag.Bool("once", false, "close due periods once and exit")
	lookback := flag.Int("lookback", services.DefaultLookback, "how many past periods to consider")
	strategy := flag.String("strategy", "", "named close strategy; empty uses CLOSE_GRACE")
	flag.Parse()

	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentScheduler, os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)
	publisher := cli.InitAMQP(logger, cfg)
	parts := cli.BuildService(cfg, res, publisher, logger)

	checker := services.CheckerFor(cfg.CloseGrace)
	if *strategy != "" {
		named, err := services.GetCloseChecker(*strategy)
		if err != nil {
			logger.Error("Unknown close strategy", applog.FieldError, err)
			os.Exit(1)
		}
		checker = named
	}
	closer := services.NewPeriodCloser(parts.Service, checker, *lookback, logger)

	cleanup := func(context.Context) {
		parts.Caches.Stop()
		if publisher != nil {
			_ = publisher.Close()
		}
		if err := res.Close(); err != nil {
			logger.Warn("Backend close error", applog.FieldError, err)
		}
	}
	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, cleanup)

	run := func() {
		closed, err := closer.ProcessDuePeriods(ctx, time.Now())
		if err != nil {
			logger.Error("Closing due periods failed", applog.FieldError, err)
			return
		}
		logger.Info("Due periods processed", applog.FieldCount, closed)
	}

	logger.Info("Starting period-closer",
		"interval", cfg.CloseInterval.String(),
		"grace", cfg.CloseGrace.String(),
		"lookback", *lookback)
	run()
	if *once {
		cleanup(ctx)
		return
	}

	ticker := time.NewTicker(cfg.CloseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Period closer stopped gracefully")
			return
		case <-ticker.C:
			run()
		}
	}
}
