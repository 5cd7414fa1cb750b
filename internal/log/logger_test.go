package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_ComponentTag(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: slog.LevelInfo, Component: ComponentWorker})

	logger.Info("hello", "k", "v")
	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentHTTP).Info("again")
	if !strings.Contains(buf.String(), "component=http") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Level: slog.LevelDebug}))

	sl.LogPeriodClosed(context.Background(), "2025-11", "alice", 42, 120, "silver")
	out := buf.String()
	for _, want := range []string{"period=2025-11", "party_id=alice", "points_total=42", "cumulative_points=120", "tier=silver", "operation=close_period"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad thing"), ComponentStorage, OpSaveSummary, nil)
	if !strings.Contains(buf.String(), `error="bad thing"`) {
		t.Errorf("missing error in %s", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected default logger: %+v", l)
	}
	stored := Discard()
	if got := FromContext(WithLogger(context.Background(), stored)); got != stored {
		t.Fatal("logger not read back from context")
	}
}
