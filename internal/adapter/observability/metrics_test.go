package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/sessions/{id}", http.MethodGet, "No Content"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/v1/sessions/{id}", http.MethodGet, "No Content"))
	assert.Equal(t, before+1, after)
}

func TestDomainMetricHelpers(t *testing.T) {
	InitMetrics()
	InitMetrics()

	before := testutil.ToFloat64(AIRequestsTotal.WithLabelValues("stub", "chat", "error"))
	ObserveAIRequest("stub", "chat", errors.New("boom"), time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(AIRequestsTotal.WithLabelValues("stub", "chat", "error")))

	before = testutil.ToFloat64(SessionTransitionsTotal.WithLabelValues("active", "completed"))
	ObserveTransition("active", "completed")
	assert.Equal(t, before+1, testutil.ToFloat64(SessionTransitionsTotal.WithLabelValues("active", "completed")))

	before = testutil.ToFloat64(AnalysesTotal.WithLabelValues("synthetic"))
	ObserveAnalysis("synthetic", 62.67)
	ObserveAnalysis("synthetic", 140)
	assert.Equal(t, before+2, testutil.ToFloat64(AnalysesTotal.WithLabelValues("synthetic")))

	ObserveTurn("ok")
	ObserveModeration("local", "approved")
	ObserveGeneration("exam", false)
	ObserveEvent("session.started", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(GenerationsTotal.WithLabelValues("exam", "invalid")))
}
