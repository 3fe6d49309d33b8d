package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextWithLoggerAndLoggerFromContext(t *testing.T) {
	lg := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	base := context.Background()

	ctx := ContextWithLogger(base, lg)
	assert.Same(t, lg, LoggerFromContext(ctx))
	assert.Equal(t, base, ContextWithLogger(base, nil))
	assert.Same(t, slog.Default(), LoggerFromContext(base))
	//nolint:staticcheck // nil context is handled explicitly
	assert.Same(t, slog.Default(), LoggerFromContext(nil))
}

func TestRequestIDRoundTrip(t *testing.T) {
	base := context.Background()
	assert.Equal(t, "", RequestIDFromContext(base))
	assert.Equal(t, base, ContextWithRequestID(base, ""))
	assert.Equal(t, "req-1", RequestIDFromContext(ContextWithRequestID(base, "req-1")))
}

func TestWithSession_AddsLoggerAttribute(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	ctx = WithSession(ctx, "sess-42")
	assert.Equal(t, "sess-42", SessionIDFromContext(ctx))

	again := WithSession(ctx, "sess-42")
	assert.Equal(t, ctx, again)

	LoggerFromContext(again).Info("turn")
	out := buf.String()
	assert.Contains(t, out, "session_id=sess-42")
	assert.Equal(t, 1, strings.Count(out, "session_id="))
}
