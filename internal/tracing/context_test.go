package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithThreadID(ctx, "thread-1")
	ctx = WithNode(ctx, "sales_agent")
	ctx = WithTenantID(ctx, "tenant-1")

	tc := FromContext(ctx)
	assert.Equal(t, "trace-1", tc.TraceID)
	assert.Equal(t, "thread-1", tc.ThreadID)
	assert.Equal(t, "sales_agent", tc.Node)
	assert.Equal(t, "tenant-1", tc.TenantID)
}

func TestEmptyContext(t *testing.T) {
	tc := FromContext(context.Background())
	assert.Empty(t, tc.TraceID)
	assert.Empty(t, tc.ThreadID)
	assert.Empty(t, tc.Node)
	assert.Empty(t, tc.TenantID)
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background())
	assert.NotEmpty(t, GetTraceID(ctx))

	other := NewRequestContext(context.Background())
	assert.NotEqual(t, GetTraceID(ctx), GetTraceID(other))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithThreadID(context.Background(), "thread-42")
	ctx = WithNode(ctx, "refunds_agent")

	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("turn complete")

	out := buf.String()
	assert.Contains(t, out, "thread-42")
	assert.Contains(t, out, "refunds_agent")
}
