package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// SessionRepo persists interview sessions. The question config and the
// analysis report are stored as JSONB.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

const sessionColumns = `id, application_id, candidate_id, employer_id, status, config, current_question_index,
	conversation_handle, started_at, completed_at, last_activity_at, created_at, total_score, max_possible_score, analysis_report`

func scanSession(row pgx.Row) (domain.InterviewSession, error) {
	var s domain.InterviewSession
	var cfg, report []byte
	if err := row.Scan(&s.ID, &s.ApplicationID, &s.CandidateID, &s.EmployerID, &s.Status, &cfg, &s.CurrentQuestionIndex,
		&s.ConversationHandle, &s.StartedAt, &s.CompletedAt, &s.LastActivityAt, &s.CreatedAt, &s.TotalScore, &s.MaxPossibleScore, &report); err != nil {
		return domain.InterviewSession{}, err
	}
	if err := json.Unmarshal(cfg, &s.Config); err != nil {
		return domain.InterviewSession{}, fmt.Errorf("decode config: %w", err)
	}
	if len(report) > 0 {
		var r domain.AnalysisReport
		if err := json.Unmarshal(report, &r); err != nil {
			return domain.InterviewSession{}, fmt.Errorf("decode report: %w", err)
		}
		s.AnalysisReport = &r
	}
	return s, nil
}

// Create inserts a new session and returns its id (generates one if empty).
func (r *SessionRepo) Create(ctx domain.Context, s domain.InterviewSession) (string, error) {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.Create")
	defer span.End()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return "", fmt.Errorf("op=session.create: %w", err)
	}
	q := `INSERT INTO interview_sessions (id, application_id, candidate_id, employer_id, vacancy_id, status, config,
	current_question_index, conversation_handle, started_at, completed_at, last_activity_at, created_at, total_score, max_possible_score)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err = r.Pool.Exec(ctx, q, s.ID, s.ApplicationID, s.CandidateID, s.EmployerID, s.Config.VacancyID, s.Status, cfg,
		s.CurrentQuestionIndex, s.ConversationHandle, s.StartedAt, s.CompletedAt, s.LastActivityAt, s.CreatedAt, s.TotalScore, s.MaxPossibleScore)
	if err != nil {
		return "", mapErr("session.create", err)
	}
	return s.ID, nil
}

// Get loads a session by id.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.InterviewSession, error) {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.Get")
	defer span.End()
	s, err := scanSession(r.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id=$1`, id))
	if err != nil {
		return domain.InterviewSession{}, mapErr("session.get", err)
	}
	return s, nil
}

// GetByApplication loads the session bound to an application.
func (r *SessionRepo) GetByApplication(ctx domain.Context, applicationID string) (domain.InterviewSession, error) {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.GetByApplication")
	defer span.End()
	s, err := scanSession(r.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE application_id=$1`, applicationID))
	if err != nil {
		return domain.InterviewSession{}, mapErr("session.get_by_application", err)
	}
	return s, nil
}

// Update writes every mutable column. The config and report are not touched.
func (r *SessionRepo) Update(ctx domain.Context, s domain.InterviewSession) error {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.Update")
	defer span.End()
	q := `UPDATE interview_sessions SET status=$2, current_question_index=$3, conversation_handle=$4, started_at=$5,
	completed_at=$6, last_activity_at=$7, total_score=$8 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, s.ID, s.Status, s.CurrentQuestionIndex, s.ConversationHandle, s.StartedAt,
		s.CompletedAt, s.LastActivityAt, s.TotalScore)
	if err != nil {
		return mapErr("session.update", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.update: %w", domain.ErrNotFound)
	}
	return nil
}

// SaveReport stores the analysis report, replacing any previous one.
func (r *SessionRepo) SaveReport(ctx domain.Context, id string, report domain.AnalysisReport) error {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.SaveReport")
	defer span.End()
	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("op=session.save_report: %w", err)
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE interview_sessions SET analysis_report=$2 WHERE id=$1`, id, b)
	if err != nil {
		return mapErr("session.save_report", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.save_report: %w", domain.ErrNotFound)
	}
	return nil
}

// FindActiveByCandidate returns the newest pending or active session of a candidate.
func (r *SessionRepo) FindActiveByCandidate(ctx domain.Context, candidateID string) (domain.InterviewSession, error) {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.FindActiveByCandidate")
	defer span.End()
	q := `SELECT ` + sessionColumns + ` FROM interview_sessions
	WHERE candidate_id=$1 AND status IN ('pending','active') ORDER BY created_at DESC LIMIT 1`
	s, err := scanSession(r.Pool.QueryRow(ctx, q, candidateID))
	if err != nil {
		return domain.InterviewSession{}, mapErr("session.find_active", err)
	}
	return s, nil
}

// ListByEmployer returns every session of an employer, oldest first.
func (r *SessionRepo) ListByEmployer(ctx domain.Context, employerID string) ([]domain.InterviewSession, error) {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.ListByEmployer")
	defer span.End()
	q := `SELECT ` + sessionColumns + ` FROM interview_sessions WHERE employer_id=$1 ORDER BY created_at`
	return r.list(ctx, "session.list_by_employer", q, employerID)
}

// ListAnalyzedByVacancy returns the completed sessions of a vacancy that carry a report.
func (r *SessionRepo) ListAnalyzedByVacancy(ctx domain.Context, vacancyID string) ([]domain.InterviewSession, error) {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.ListAnalyzedByVacancy")
	defer span.End()
	q := `SELECT ` + sessionColumns + ` FROM interview_sessions
	WHERE vacancy_id=$1 AND status='completed' AND analysis_report IS NOT NULL ORDER BY completed_at`
	return r.list(ctx, "session.list_analyzed", q, vacancyID)
}

func (r *SessionRepo) list(ctx domain.Context, op, q string, args ...any) ([]domain.InterviewSession, error) {
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()
	var out []domain.InterviewSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return out, nil
}
