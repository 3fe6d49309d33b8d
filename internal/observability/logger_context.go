// Package observability carries request- and session-scoped logging context
// across layers.
package observability

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

type requestIDContextKey struct{}

type sessionIDContextKey struct{}

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the logger stored in the context or the default
// slog logger when none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID stores a non-empty request_id in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext retrieves the request_id, or "" when none is present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(requestIDContextKey{}).(string)
	return rid
}

// WithSession scopes the context to one interview session: the session id is
// stored and the context logger gains a session_id attribute. Calling it again
// with the same id is a no-op.
func WithSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil || sessionID == "" || SessionIDFromContext(ctx) == sessionID {
		return ctx
	}
	ctx = context.WithValue(ctx, sessionIDContextKey{}, sessionID)
	return ContextWithLogger(ctx, LoggerFromContext(ctx).With(slog.String("session_id", sessionID)))
}

// SessionIDFromContext returns the session id set by WithSession.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sid, _ := ctx.Value(sessionIDContextKey{}).(string)
	return sid
}
