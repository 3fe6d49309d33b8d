package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

// Interviews is the session engine surface served over HTTP.
type Interviews interface {
	Start(ctx domain.Context, sessionID string) (domain.StartResult, error)
	SendMessage(ctx domain.Context, sessionID, text string) (domain.TurnResult, error)
	RetryTurn(ctx domain.Context, sessionID string) (domain.TurnResult, error)
	Finalize(ctx domain.Context, sessionID string) (domain.AnalysisReport, error)
	Snapshot(ctx domain.Context, sessionID string) (domain.SessionSnapshot, error)
	History(ctx domain.Context, sessionID string) ([]domain.ChatMessage, error)
	ActiveForCandidate(ctx domain.Context, candidateID string) (domain.InterviewSession, error)
	Report(ctx domain.Context, sessionID string) (domain.AnalysisReport, error)
}

// Reports is the employer reporting surface.
type Reports interface {
	EmployerReport(ctx domain.Context, employerID string) (domain.EmployerReport, error)
	Ranking(ctx domain.Context, vacancyID string) ([]domain.RankedCandidate, error)
	Candidates(ctx domain.Context, employerID string) ([]domain.CandidateOverview, error)
}

// Generator is the document generation surface.
type Generator interface {
	GenerateInterview(ctx domain.Context, vacancyID string, n int) ([]domain.Question, error)
	GenerateExam(ctx domain.Context, employerID string, req usecase.ExamRequest) (domain.GeneratedExam, error)
	DraftVacancy(ctx domain.Context, employerID string, in domain.VacancyDraftInput) (domain.VacancyDraft, error)
}

// Applications records candidate applications.
type Applications interface {
	Apply(ctx domain.Context, vacancyID string, c domain.Candidate) (usecase.ApplyResult, error)
}

// Server aggregates handler dependencies.
type Server struct {
	Interviews   Interviews
	Analyzer     usecase.Analyzer
	Reports      Reports
	Generator    Generator
	Applications Applications
	DBCheck      func(ctx context.Context) error
	RedisCheck   func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(interviews Interviews, analyzer usecase.Analyzer, reports Reports, gen Generator, apps Applications, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Interviews: interviews, Analyzer: analyzer, Reports: reports, Generator: gen, Applications: apps, DBCheck: dbCheck, RedisCheck: redisCheck}
}

type sessionView struct {
	SessionID            string               `json:"session_id"`
	ApplicationID        string               `json:"application_id"`
	CandidateID          string               `json:"candidate_id"`
	VacancyID            string               `json:"vacancy_id"`
	VacancyTitle         string               `json:"vacancy_title"`
	Status               domain.SessionStatus `json:"status"`
	CurrentQuestionIndex int                  `json:"current_question_index"`
	TotalQuestions       int                  `json:"total_questions"`
	StartedAt            *time.Time           `json:"started_at,omitempty"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	TotalScore           float64              `json:"total_score"`
	MaxPossibleScore     float64              `json:"max_possible_score"`
}

func viewOf(s domain.InterviewSession) sessionView {
	return sessionView{
		SessionID:            s.ID,
		ApplicationID:        s.ApplicationID,
		CandidateID:          s.CandidateID,
		VacancyID:            s.Config.VacancyID,
		VacancyTitle:         s.Config.VacancyTitle,
		Status:               s.Status,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		TotalQuestions:       s.TotalQuestions(),
		StartedAt:            s.StartedAt,
		CompletedAt:          s.CompletedAt,
		TotalScore:           s.TotalScore,
		MaxPossibleScore:     s.MaxPossibleScore,
	}
}

// pathID reads and validates a chi URL parameter.
func pathID(r *http.Request, name string) (string, error) {
	id := chi.URLParam(r, name)
	return id, ValidateID(name, id)
}

// ApplyHandler records an application and returns its interview session.
func (s *Server) ApplyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vacancyID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req domain.Candidate
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Applications.Apply(r.Context(), vacancyID, req)
		if err != nil {
			writeError(w, r, fmt.Errorf("apply: %w", err), nil)
			return
		}
		status := http.StatusCreated
		if res.Existing {
			status = http.StatusOK
		}
		writeJSON(w, status, map[string]any{
			"application_id": res.Application.ID,
			"existing":       res.Existing,
			"session":        viewOf(res.Session),
		})
	}
}

// GenerateInterviewHandler generates and stores the question set of a vacancy.
func (s *Server) GenerateInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vacancyID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req struct {
			Count int `json:"n" validate:"omitempty,min=1,max=20"`
		}
		if r.ContentLength != 0 {
			if details, err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, err, details)
				return
			}
		}
		qs, err := s.Generator.GenerateInterview(r.Context(), vacancyID, req.Count)
		if err != nil {
			writeError(w, r, fmt.Errorf("generate interview: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"vacancy_id": vacancyID, "questions": qs})
	}
}

// DraftVacancyHandler proposes a vacancy description and requirement list.
func (s *Server) DraftVacancyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.VacancyDraftInput
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		draft, err := s.Generator.DraftVacancy(r.Context(), EmployerID(r), req)
		if err != nil {
			writeError(w, r, fmt.Errorf("draft vacancy: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, draft)
	}
}

// GenerateExamHandler produces a validated multiple-choice exam.
func (s *Server) GenerateExamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req usecase.ExamRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		exam, err := s.Generator.GenerateExam(r.Context(), EmployerID(r), req)
		if err != nil {
			writeError(w, r, fmt.Errorf("generate exam: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, exam)
	}
}

// ValidateExamHandler validates a submitted exam document. The body may be a
// bare JSON document or text wrapping one.
func (s *Server) ValidateExamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text" validate:"required"`
		}
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		if !ai.ExtractJSON(req.Text).Found() {
			writeJSON(w, http.StatusOK, domain.ExamValidation{Error: "no JSON object found"})
			return
		}
		_, val := usecase.ValidateExamOutput(req.Text)
		writeJSON(w, http.StatusOK, val)
	}
}

// ActiveSessionHandler returns the pending or active session of a candidate.
func (s *Server) ActiveSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		candidateID := strings.TrimSpace(r.URL.Query().Get("candidate_id"))
		if err := ValidateID("candidate_id", candidateID); err != nil {
			writeError(w, r, err, nil)
			return
		}
		sess, err := s.Interviews.ActiveForCandidate(r.Context(), candidateID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(sess))
	}
}

// byID adapts a call keyed by the {id} path parameter into a handler.
func (s *Server) byID(status int, call func(ctx context.Context, id string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out, err := call(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, status, out)
	}
}

// SnapshotHandler returns the client view of a session.
func (s *Server) SnapshotHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		return s.Interviews.Snapshot(ctx, id)
	})
}

// StartHandler starts a pending session and returns the opening message.
func (s *Server) StartHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		return s.Interviews.Start(ctx, id)
	})
}

// RetryHandler re-forwards the dangling candidate message of an incomplete turn.
func (s *Server) RetryHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		return s.Interviews.RetryTurn(ctx, id)
	})
}

// HistoryHandler returns the ordered transcript.
func (s *Server) HistoryHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		msgs, err := s.Interviews.History(ctx, id)
		if msgs == nil {
			msgs = []domain.ChatMessage{}
		}
		return map[string]any{"session_id": id, "messages": msgs}, err
	})
}

// FinalizeHandler ends an active session early and returns its report.
func (s *Server) FinalizeHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		return s.Interviews.Finalize(ctx, id)
	})
}

// AnalyzeHandler (re)runs the analysis of a completed session.
func (s *Server) AnalyzeHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		return s.Analyzer.Analyze(ctx, id)
	})
}

// ReportHandler returns the stored analysis report.
func (s *Server) ReportHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		return s.Interviews.Report(ctx, id)
	})
}

// SendMessageHandler forwards one candidate answer.
func (s *Server) SendMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req struct {
			Message string `json:"message" validate:"required,max=10000"`
		}
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Interviews.SendMessage(r.Context(), id, req.Message)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// EmployerCandidatesHandler lists the candidates of an employer.
func (s *Server) EmployerCandidatesHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		list, err := s.Reports.Candidates(ctx, id)
		if list == nil {
			list = []domain.CandidateOverview{}
		}
		return map[string]any{"employer_id": id, "candidates": list}, err
	})
}

// EmployerReportHandler aggregates every analysed interview of an employer.
func (s *Server) EmployerReportHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		return s.Reports.EmployerReport(ctx, id)
	})
}

// RankingHandler ranks the analysed candidates of a vacancy.
func (s *Server) RankingHandler() http.HandlerFunc {
	return s.byID(http.StatusOK, func(ctx context.Context, id string) (any, error) {
		ranked, err := s.Reports.Ranking(ctx, id)
		if ranked == nil {
			ranked = []domain.RankedCandidate{}
		}
		return map[string]any{"vacancy_id": id, "ranking": ranked}, err
	})
}

// ReadyzHandler probes the database and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}}
		checks := make([]check, 0, len(probes))
		st := http.StatusOK
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, Details: err.Error()})
				st = http.StatusServiceUnavailable
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
