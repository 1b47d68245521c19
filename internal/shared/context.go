package shared

import (
	"context"
	"log/slog"
)

type runIDContextKey struct{}

// ContextWithRunID stores the ingestion run id in context.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey{}, runID)
}

// RunIDFromContext extracts the ingestion run id from context.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDContextKey{}).(string)
	return id
}

// LoggerFromContext decorates logger with the run id carried by ctx, if any.
func LoggerFromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		return logger.With(slog.String("run_id", id))
	}
	return logger
}
