package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

var fixed = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func sessionRow(t *testing.T, id string, report *domain.AnalysisReport) []any {
	t.Helper()
	cfg, err := json.Marshal(domain.InterviewConfig{
		Questions: []domain.Question{{ID: "q1", Question: "Why Go?", Weight: 100}},
		VacancyID: "vac-1",
	})
	require.NoError(t, err)
	var rep any
	if report != nil {
		b, err := json.Marshal(report)
		require.NoError(t, err)
		rep = b
	}
	return []any{id, "app-1", "cand-1", "emp-1", "active", cfg, 0, "conv-1", fixed, nil, fixed, fixed, 12.5, 100.0, rep}
}

func TestSessionRepo_Create(t *testing.T) {
	pool := &fakePool{}
	repo := postgres.NewSessionRepo(pool)

	id, err := repo.Create(context.Background(), domain.InterviewSession{
		Status: domain.SessionPending,
		Config: domain.InterviewConfig{VacancyID: "vac-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	c := pool.last()
	assert.Contains(t, c.sql, "INSERT INTO interview_sessions")
	assert.Equal(t, id, c.args[0])
	assert.Equal(t, "vac-1", c.args[4])

	pool.execErr = &pgconn.PgError{Code: "23505", ConstraintName: "interview_sessions_application_id_key"}
	_, err = repo.Create(context.Background(), domain.InterviewSession{ID: "s1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorContains(t, err, "op=session.create")
}

func TestSessionRepo_Get(t *testing.T) {
	report := &domain.AnalysisReport{QuantitativeScore: 71.5, Source: domain.SourceManual}
	pool := &fakePool{row: sessionRow(t, "s1", report)}
	repo := postgres.NewSessionRepo(pool)

	s, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, s.Status)
	assert.Equal(t, "vac-1", s.Config.VacancyID)
	require.Len(t, s.Config.Questions, 1)
	require.NotNil(t, s.StartedAt)
	assert.Nil(t, s.CompletedAt)
	require.NotNil(t, s.AnalysisReport)
	assert.Equal(t, 71.5, s.AnalysisReport.QuantitativeScore)

	pool.row = sessionRow(t, "s2", nil)
	s, err = repo.GetByApplication(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Nil(t, s.AnalysisReport)
	assert.Equal(t, []any{"app-1"}, pool.last().args)

	pool.row = nil
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pool.rowErr = errors.New("conn closed")
	_, err = repo.FindActiveByCandidate(context.Background(), "cand-1")
	assert.ErrorContains(t, err, "op=session.find_active: conn closed")
}

func TestSessionRepo_UpdateAndSaveReport(t *testing.T) {
	pool := &fakePool{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := postgres.NewSessionRepo(pool)
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, domain.InterviewSession{ID: "s1", Status: domain.SessionCompleted, CurrentQuestionIndex: 2}))
	assert.Equal(t, domain.SessionCompleted, pool.last().args[1])
	assert.Equal(t, 2, pool.last().args[2])

	require.NoError(t, repo.SaveReport(ctx, "s1", domain.AnalysisReport{QuantitativeScore: 50}))
	var stored domain.AnalysisReport
	require.NoError(t, json.Unmarshal(pool.last().args[1].([]byte), &stored))
	assert.Equal(t, 50.0, stored.QuantitativeScore)

	pool.execTag = pgconn.NewCommandTag("UPDATE 0")
	assert.ErrorIs(t, repo.Update(ctx, domain.InterviewSession{ID: "gone"}), domain.ErrNotFound)
	assert.ErrorIs(t, repo.SaveReport(ctx, "gone", domain.AnalysisReport{}), domain.ErrNotFound)
}

func TestSessionRepo_Lists(t *testing.T) {
	pool := &fakePool{rows: [][]any{sessionRow(t, "s1", nil), sessionRow(t, "s2", &domain.AnalysisReport{QuantitativeScore: 80})}}
	repo := postgres.NewSessionRepo(pool)

	got, err := repo.ListByEmployer(context.Background(), "emp-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s2", got[1].ID)

	got, err = repo.ListAnalyzedByVacancy(context.Background(), "vac-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, pool.last().sql, "analysis_report IS NOT NULL")

	pool.queryErr = errors.New("timeout")
	_, err = repo.ListByEmployer(context.Background(), "emp-1")
	assert.ErrorContains(t, err, "op=session.list_by_employer")
}

func TestMigrate(t *testing.T) {
	pool := &fakePool{}
	require.NoError(t, postgres.Migrate(context.Background(), pool))
	assert.Contains(t, pool.last().sql, "CREATE TABLE IF NOT EXISTS interview_sessions")
	assert.Contains(t, pool.last().sql, "UNIQUE (session_id, seq)")

	pool.execErr = errors.New("permission denied")
	assert.ErrorContains(t, postgres.Migrate(context.Background(), pool), "op=postgres.migrate")
}

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := postgres.NewPool(context.Background(), "://bad")
	assert.Error(t, err)
}
