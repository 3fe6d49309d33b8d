package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// VacancyRepo reads vacancies and stores their generated question sets.
type VacancyRepo struct{ Pool PgxPool }

// NewVacancyRepo constructs a VacancyRepo with the given pool.
func NewVacancyRepo(p PgxPool) *VacancyRepo { return &VacancyRepo{Pool: p} }

// Get loads a vacancy by id.
func (r *VacancyRepo) Get(ctx domain.Context, id string) (domain.Vacancy, error) {
	ctx, span := otel.Tracer("repo.vacancies").Start(ctx, "vacancies.Get")
	defer span.End()
	q := `SELECT id, employer_id, title, description, requirements, questions, created_at FROM vacancies WHERE id=$1`
	var v domain.Vacancy
	var reqs, qs []byte
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&v.ID, &v.EmployerID, &v.Title, &v.Description, &reqs, &qs, &v.CreatedAt); err != nil {
		return domain.Vacancy{}, mapErr("vacancy.get", err)
	}
	if err := json.Unmarshal(reqs, &v.Requirements); err != nil {
		return domain.Vacancy{}, fmt.Errorf("op=vacancy.get: decode requirements: %w", err)
	}
	if err := json.Unmarshal(qs, &v.Questions); err != nil {
		return domain.Vacancy{}, fmt.Errorf("op=vacancy.get: decode questions: %w", err)
	}
	return v, nil
}

// SaveQuestions replaces the vacancy's question set.
func (r *VacancyRepo) SaveQuestions(ctx domain.Context, id string, questions []domain.Question) error {
	ctx, span := otel.Tracer("repo.vacancies").Start(ctx, "vacancies.SaveQuestions")
	defer span.End()
	b, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("op=vacancy.save_questions: %w", err)
	}
	tag, err := r.Pool.Exec(ctx, `UPDATE vacancies SET questions=$2 WHERE id=$1`, id, b)
	if err != nil {
		return mapErr("vacancy.save_questions", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=vacancy.save_questions: %w", domain.ErrNotFound)
	}
	return nil
}

// Upsert inserts or replaces a vacancy. Used to load vacancies published by
// the employer side and by the dev seed.
func (r *VacancyRepo) Upsert(ctx domain.Context, v domain.Vacancy) (string, error) {
	ctx, span := otel.Tracer("repo.vacancies").Start(ctx, "vacancies.Upsert")
	defer span.End()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	reqs, err := json.Marshal(nonNil(v.Requirements))
	if err != nil {
		return "", fmt.Errorf("op=vacancy.upsert: %w", err)
	}
	qs, err := json.Marshal(nonNil(v.Questions))
	if err != nil {
		return "", fmt.Errorf("op=vacancy.upsert: %w", err)
	}
	q := `INSERT INTO vacancies (id, employer_id, title, description, requirements, questions, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,now())
	ON CONFLICT (id) DO UPDATE SET employer_id=EXCLUDED.employer_id, title=EXCLUDED.title,
	description=EXCLUDED.description, requirements=EXCLUDED.requirements, questions=EXCLUDED.questions`
	if _, err := r.Pool.Exec(ctx, q, v.ID, v.EmployerID, v.Title, v.Description, reqs, qs); err != nil {
		return "", mapErr("vacancy.upsert", err)
	}
	return v.ID, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
