package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger enriches a logger with tracing fields from the context
func PropagateToLogger(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	logCtx := baseLogger.With()

	if traceID := GetTraceID(ctx); traceID != "" {
		logCtx = logCtx.Str("trace_id", traceID)
	}
	if threadID := GetThreadID(ctx); threadID != "" {
		logCtx = logCtx.Str("thread_id", threadID)
	}
	if node := GetNode(ctx); node != "" {
		logCtx = logCtx.Str("node", node)
	}
	if tenantID := GetTenantID(ctx); tenantID != "" {
		logCtx = logCtx.Str("tenant_id", tenantID)
	}

	return logCtx.Logger()
}

// LoggerFromContext returns a logger enriched with tracing information from context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}
