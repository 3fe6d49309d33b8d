package httpserver

import (
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	obsctx "github.com/fairyhunter13/ai-interview-evaluator/internal/observability"
)

const (
	headerRequestID  = "X-Request-Id"
	headerEmployerID = "X-Employer-ID"
)

// Recoverer turns a panic into the INTERNAL error envelope.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					LoggerFrom(r).Error("panic recovered", slog.Any("recover", rec), slog.String("route", routeOf(r)))
					writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: apiError{Code: "INTERNAL", Message: "internal error"}})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID attaches a request id and a request-scoped logger to the context.
// A client id that is not a plain token is replaced by a fresh ULID.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(headerRequestID)
			if ValidateID("request_id", reqID) != nil {
				reqID = newReqID()
				r.Header.Set(headerRequestID, reqID)
			}
			spanCtx := trace.SpanContextFromContext(r.Context())
			attrs := []any{
				slog.String("request_id", reqID),
				slog.String("trace_id", spanCtx.TraceID().String()),
				slog.String("span_id", spanCtx.SpanID().String()),
			}
			if employer := EmployerID(r); employer != "" {
				attrs = append(attrs, slog.String("employer_id", employer))
			}
			ctx := obsctx.ContextWithLogger(r.Context(), slog.Default().With(attrs...))
			ctx = obsctx.ContextWithRequestID(ctx, reqID)
			w.Header().Set(headerRequestID, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TimeoutMiddleware bounds a route group. Use cases apply their own shorter
// deadlines to upstream calls; this is the outer limit.
func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":{"code":"UPSTREAM_TIMEOUT","message":"request timed out","details":null}}`)
	}
}

// EmployerID reads the employer scope of generation and reporting requests.
func EmployerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(headerEmployerID))
}

// SecurityHeaders adds strict security headers suitable for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// LoggerFrom returns the request-scoped logger.
func LoggerFrom(r *http.Request) *slog.Logger {
	return obsctx.LoggerFromContext(r.Context())
}

var ulidEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // Weak random is sufficient for ULID entropy.

func newReqID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now()), ulidEntropy)
	if err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return id.String()
}

func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// resourceAttr names the {id} of a routed request after the resource it
// belongs to, so access lines can be joined with use case logs.
func resourceAttr(r *http.Request, route string) (slog.Attr, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return slog.Attr{}, false
	}
	switch {
	case strings.Contains(route, "/sessions/"):
		return slog.String("session_id", id), true
	case strings.Contains(route, "/vacancies/"):
		return slog.String("vacancy_id", id), true
	case strings.Contains(route, "/employers/"):
		return slog.String("employer_id", id), true
	}
	return slog.Attr{}, false
}

// AccessLog writes one line per request. Turn conflicts (409) are expected
// under concurrent clients and logged at info.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routeOf(r)
			status := ww.Status()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			}
			if a, ok := resourceAttr(r, route); ok {
				attrs = append(attrs, a)
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400 && status != http.StatusConflict:
				level = slog.LevelWarn
			}
			LoggerFrom(r).LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}
