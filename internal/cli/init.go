// Package cli provides common CLI initialization utilities shared by
// cmd/fairshare, cmd/fairshare-worker and cmd/period-closer.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fairshare/internal/amqp"
	"fairshare/internal/backend"
	"fairshare/internal/cache"
	"fairshare/internal/config"
	"fairshare/internal/fairness"
	applog "fairshare/internal/log"
	"fairshare/internal/services"
)

// SetupLogger builds the process logger at the given LOG_LEVEL and makes
// it the slog default.
func SetupLogger(level, component string, out io.Writer) *applog.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: component,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend builds the configured data backend.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// InitBackend is OpenBackend that exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	res, err := OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	logger.Info("Data backend initialized", "backend", cfg.DataBackend, "export_enabled", res.Exporter != nil)
	return res
}

// InitAMQP connects to the broker when AMQP_URL is set. It returns nil
// without a URL or when the broker cannot be reached; messaging is
// optional for every binary.
func InitAMQP(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to connect to AMQP, continuing without messaging", applog.FieldError, err)
		return nil
	}
	logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// ServiceParts is what BuildService wires together.
type ServiceParts struct {
	Service *services.FairShareService
	Cache   *cache.LRUCache[fairness.PeriodResult]
	Caches  *cache.Manager
}

// BuildService wires the service over a backend. publisher may be nil.
// The returned cache manager is already sweeping; stop it on shutdown.
func BuildService(cfg *config.Config, res *backend.BackendResult, publisher *amqp.Client, logger *applog.Logger) ServiceParts {
	comparisons := cache.NewLRUCache[fairness.PeriodResult](cfg.CacheSize, cfg.CacheTTL)
	manager := cache.NewManager(logger)
	manager.Register(comparisons)
	manager.StartCleanup(cfg.CacheTTL)

	deps := services.Deps{
		Summaries: res.Backend,
		Writer:    res.Backend,
		Ledger:    res.Backend,
		Settings:  res.Backend,
		Couples:   res.Backend,
		Cache:     comparisons,
		Logger:    logger,
	}
	// a nil *amqp.Client must not become a non-nil interface
	if publisher != nil {
		deps.Publisher = publisher
	}
	return ServiceParts{
		Service: services.NewFairShareService(deps),
		Cache:   comparisons,
		Caches:  manager,
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled on SIGINT/SIGTERM or when parent is
// done; the channel closes once cleanup has finished.
func GracefulShutdown(parent context.Context, logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
			logger.Info("Context cancelled")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
