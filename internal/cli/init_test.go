package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"fairshare/internal/config"
	"fairshare/internal/fairness"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.DataBackend = "memory"
	cfg.AMQPURL = ""
	cfg.CacheSize = 8
	cfg.CacheTTL = time.Minute
	return cfg
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("warn", "cli-test", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=cli-test") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestOpenBackendAndBuildService(t *testing.T) {
	cfg := memoryConfig(t)
	logger := SetupLogger("error", "cli-test", &bytes.Buffer{})

	res, err := OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		t.Fatalf("OpenBackend() error = %v", err)
	}
	defer res.Close()

	if InitAMQP(logger, cfg) != nil {
		t.Fatal("InitAMQP() without URL should return nil")
	}

	parts := BuildService(cfg, res, nil, logger)
	defer parts.Caches.Stop()

	if parts.Service == nil || parts.Cache == nil {
		t.Fatal("BuildService() returned incomplete parts")
	}
	if got := len(parts.Service.Tiers()); got != len(fairness.DefaultCatalog().Tiers()) {
		t.Errorf("Tiers() = %d entries", got)
	}
	couples, err := parts.Service.ListCouples(context.Background())
	if err != nil {
		t.Fatalf("ListCouples() error = %v", err)
	}
	if len(couples) == 0 {
		t.Error("memory backend should seed a couple")
	}
}

func TestOpenBackendInvalidType(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.DataBackend = "postgres"
	if _, err := OpenBackend(context.Background(), SetupLogger("error", "", &bytes.Buffer{}), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestGracefulShutdownOnParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(parent, SetupLogger("error", "", &bytes.Buffer{}), time.Second, func(context.Context) {
		close(cleaned)
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	if ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
	select {
	case <-cleaned:
	default:
		t.Error("cleanup did not run")
	}
}
