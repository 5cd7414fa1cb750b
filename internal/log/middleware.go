package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// WithLogger stores logger in ctx
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// StructuredLogger provides domain-specific structured logging methods
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogPeriodClosed logs a party's points being recorded for a period
func (sl *StructuredLogger) LogPeriodClosed(ctx context.Context, period, partyID string, pointsTotal, cumulative int, tier string) {
	fields := NewFields().
		WithOperation(OpClosePeriod).
		WithComponent(ComponentFairness)
	fields[FieldPeriod] = period
	fields[FieldPartyID] = partyID
	fields[FieldPointsTotal] = pointsTotal
	fields[FieldCumulative] = cumulative
	fields[FieldTier] = tier

	sl.logger.Logger.InfoContext(ctx, "Period closed", fields.ToSlice()...)
}

// LogComparison logs a computed couple comparison at debug level
func (sl *StructuredLogger) LogComparison(ctx context.Context, period, selfID, partnerID string, pointsTotal, fairnessIndex int) {
	fields := NewFields().
		WithCouple(period, selfID, partnerID).
		WithScore(pointsTotal, fairnessIndex).
		WithOperation(OpCompare).
		WithComponent(ComponentFairness)

	sl.logger.Logger.DebugContext(ctx, "Couple comparison computed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
