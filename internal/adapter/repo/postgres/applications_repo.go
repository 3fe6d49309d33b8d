package postgres

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// ApplicationRepo persists candidate applications. (vacancy_id, candidate_id)
// is unique; a duplicate insert maps to domain.ErrConflict.
type ApplicationRepo struct{ Pool PgxPool }

// NewApplicationRepo constructs an ApplicationRepo with the given pool.
func NewApplicationRepo(p PgxPool) *ApplicationRepo { return &ApplicationRepo{Pool: p} }

const applicationColumns = `a.id, a.vacancy_id, a.candidate_id, a.candidate_name, a.candidate_email, a.created_at`

// Create inserts a new application and returns its id.
func (r *ApplicationRepo) Create(ctx domain.Context, a domain.Application) (string, error) {
	ctx, span := otel.Tracer("repo.applications").Start(ctx, "applications.Create")
	defer span.End()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	q := `INSERT INTO applications (id, vacancy_id, candidate_id, candidate_name, candidate_email, created_at) VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.Pool.Exec(ctx, q, a.ID, a.VacancyID, a.CandidateID, a.CandidateName, a.CandidateEmail, a.CreatedAt); err != nil {
		return "", mapErr("application.create", err)
	}
	return a.ID, nil
}

// FindByCandidate loads the application of a candidate to a vacancy.
func (r *ApplicationRepo) FindByCandidate(ctx domain.Context, vacancyID, candidateID string) (domain.Application, error) {
	ctx, span := otel.Tracer("repo.applications").Start(ctx, "applications.FindByCandidate")
	defer span.End()
	q := `SELECT ` + applicationColumns + ` FROM applications a WHERE a.vacancy_id=$1 AND a.candidate_id=$2`
	var a domain.Application
	if err := r.Pool.QueryRow(ctx, q, vacancyID, candidateID).Scan(&a.ID, &a.VacancyID, &a.CandidateID, &a.CandidateName, &a.CandidateEmail, &a.CreatedAt); err != nil {
		return domain.Application{}, mapErr("application.find", err)
	}
	return a, nil
}

// ListByEmployer returns the applications to every vacancy of an employer, oldest first.
func (r *ApplicationRepo) ListByEmployer(ctx domain.Context, employerID string) ([]domain.Application, error) {
	ctx, span := otel.Tracer("repo.applications").Start(ctx, "applications.ListByEmployer")
	defer span.End()
	q := `SELECT ` + applicationColumns + ` FROM applications a JOIN vacancies v ON v.id = a.vacancy_id
	WHERE v.employer_id=$1 ORDER BY a.created_at`
	rows, err := r.Pool.Query(ctx, q, employerID)
	if err != nil {
		return nil, mapErr("application.list", err)
	}
	defer rows.Close()
	var out []domain.Application
	for rows.Next() {
		var a domain.Application
		if err := rows.Scan(&a.ID, &a.VacancyID, &a.CandidateID, &a.CandidateName, &a.CandidateEmail, &a.CreatedAt); err != nil {
			return nil, mapErr("application.list", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("application.list", err)
	}
	return out, nil
}
