// Package app assembles the HTTP router and readiness probes.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/config"
)

// CompletingTurnTimeout bounds a turn that may finish the interview: one
// model reply followed by the analysis.
func CompletingTurnTimeout(cfg config.Config) time.Duration {
	return cfg.InterviewTurnTimeout + cfg.AnalysisTimeout + 30*time.Second
}

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v1 chi.Router) {
		// Opening a conversation waits on one model call.
		v1.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			wr.Use(httpserver.TimeoutMiddleware(cfg.InterviewTurnTimeout + 30*time.Second))
			wr.Post("/vacancies/{id}/applications", srv.ApplyHandler())
			wr.Post("/exams/validate", srv.ValidateExamHandler())
			wr.Post("/sessions/{id}/start", srv.StartHandler())
		})
		// The last answer of an interview also runs the analysis.
		v1.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			wr.Use(httpserver.TimeoutMiddleware(CompletingTurnTimeout(cfg)))
			wr.Post("/sessions/{id}/messages", srv.SendMessageHandler())
			wr.Post("/sessions/{id}/retry", srv.RetryHandler())
		})
		// Generation and analysis can take minutes.
		v1.Group(func(wr chi.Router) {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			wr.Use(httpserver.TimeoutMiddleware(cfg.GenerationTimeout + 10*time.Second))
			wr.Post("/vacancies/{id}/interview", srv.GenerateInterviewHandler())
			wr.Post("/vacancies/draft", srv.DraftVacancyHandler())
			wr.Post("/exams/generate", srv.GenerateExamHandler())
			wr.Post("/sessions/{id}/finalize", srv.FinalizeHandler())
			wr.Post("/sessions/{id}/analyze", srv.AnalyzeHandler())
		})
		v1.Get("/sessions/active", srv.ActiveSessionHandler())
		v1.Get("/sessions/{id}", srv.SnapshotHandler())
		v1.Get("/sessions/{id}/messages", srv.HistoryHandler())
		v1.Get("/sessions/{id}/report", srv.ReportHandler())
		v1.Get("/employers/{id}/candidates", srv.EmployerCandidatesHandler())
		v1.Get("/employers/{id}/report", srv.EmployerReportHandler())
		v1.Get("/vacancies/{id}/ranking", srv.RankingHandler())
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
