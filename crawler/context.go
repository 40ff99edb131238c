package crawler

import (
	"context"

	"go.uber.org/zap"
)

type ContextKey string

const RunIDKey ContextKey = "run_id"

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}

func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextLogger tags baseLogger with the run id carried by ctx, if any.
func ContextLogger(ctx context.Context, baseLogger *zap.Logger) *zap.Logger {
	if id := RunID(ctx); id != "" {
		return baseLogger.With(zap.String(string(RunIDKey), id))
	}
	return baseLogger
}
