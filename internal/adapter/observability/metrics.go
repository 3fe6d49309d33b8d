package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "operation"},
	)

	SessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_session_transitions_total",
			Help: "Interview session status transitions",
		},
		[]string{"from", "to"},
	)
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Candidate turns by outcome",
		},
		[]string{"outcome"},
	)
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_analyses_total",
			Help: "Completed analyses by SWOT source (model, manual, synthetic)",
		},
		[]string{"source"},
	)
	QuantitativeScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_quantitative_score",
			Help:    "Distribution of quantitative interview scores ([0,100])",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	ModerationVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_verdicts_total",
			Help: "Moderation verdicts by provider",
		},
		[]string{"provider", "verdict"},
	)
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Document generations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_events_published_total",
			Help: "Session lifecycle events by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)

var initOnce sync.Once

// InitMetrics registers every collector with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			SessionTransitionsTotal,
			TurnsTotal,
			AnalysesTotal,
			QuantitativeScoreHistogram,
			ModerationVerdictsTotal,
			GenerationsTotal,
			EventsPublishedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest records one upstream model call.
func ObserveAIRequest(provider, operation string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AIRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// ObserveTransition records a session status change.
func ObserveTransition(from, to string) {
	SessionTransitionsTotal.WithLabelValues(from, to).Inc()
}

// ObserveTurn records a candidate turn outcome (ok, incomplete, rejected, busy).
func ObserveTurn(outcome string) {
	TurnsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnalysis records the SWOT source and resulting score of an analysis.
func ObserveAnalysis(source string, score float64) {
	AnalysesTotal.WithLabelValues(source).Inc()
	if score >= 0 && score <= 100 {
		QuantitativeScoreHistogram.Observe(score)
	}
}

// ObserveModeration records a provider verdict.
func ObserveModeration(provider, verdict string) {
	ModerationVerdictsTotal.WithLabelValues(provider, verdict).Inc()
}

// ObserveGeneration records a generation attempt (interview, exam, vacancy).
func ObserveGeneration(kind string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "invalid"
	}
	GenerationsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveEvent records a lifecycle event publish.
func ObserveEvent(eventType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, outcome).Inc()
}
