package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

func TestMessageRepo(t *testing.T) {
	ctx := context.Background()
	pool := &fakePool{row: []any{int64(3)}}
	repo := postgres.NewMessageRepo(pool)

	score := 20.0
	m, err := repo.Append(ctx, domain.ChatMessage{SessionID: "s1", Sender: domain.SenderCandidate, Content: "hi", Score: &score})
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Seq)
	assert.NotEmpty(t, m.ID)
	assert.Contains(t, pool.last().sql, "COALESCE(MAX(seq), 0) + 1")

	pool.rows = [][]any{
		{"m1", "s1", int64(1), "ai", "Welcome", fixed, 0, nil, ""},
		{"m2", "s1", int64(2), "candidate", "Hello", fixed, 0, 12.5, "matched 1/2 keywords: go"},
	}
	msgs, err := repo.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.SenderAI, msgs[0].Sender)
	assert.Nil(t, msgs[0].Score)
	require.NotNil(t, msgs[1].Score)
	assert.Equal(t, 12.5, *msgs[1].Score)

	pool.row = []any{7}
	n, err := repo.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestVacancyRepo(t *testing.T) {
	ctx := context.Background()
	qs, _ := json.Marshal([]domain.Question{{ID: "q1", Question: "Why?", Weight: 100}})
	pool := &fakePool{row: []any{"vac-1", "emp-1", "Backend", "desc", []byte(`["Go","SQL"]`), qs, fixed}}
	repo := postgres.NewVacancyRepo(pool)

	v, err := repo.Get(ctx, "vac-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, v.Requirements)
	require.Len(t, v.Questions, 1)

	pool.row = nil
	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pool.execTag = pgconn.NewCommandTag("UPDATE 1")
	require.NoError(t, repo.SaveQuestions(ctx, "vac-1", []domain.Question{{ID: "q9"}}))
	assert.Contains(t, string(pool.last().args[1].([]byte)), `"q9"`)

	pool.execTag = pgconn.NewCommandTag("UPDATE 0")
	assert.ErrorIs(t, repo.SaveQuestions(ctx, "nope", nil), domain.ErrNotFound)

	id, err := repo.Upsert(ctx, domain.Vacancy{EmployerID: "emp-1", Title: "SRE"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, []byte("[]"), pool.last().args[4])
}

func TestApplicationRepo(t *testing.T) {
	ctx := context.Background()
	pool := &fakePool{}
	repo := postgres.NewApplicationRepo(pool)

	id, err := repo.Create(ctx, domain.Application{VacancyID: "vac-1", CandidateID: "c1", CreatedAt: fixed})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	pool.execErr = &pgconn.PgError{Code: "23505"}
	_, err = repo.Create(ctx, domain.Application{VacancyID: "vac-1", CandidateID: "c1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	pool.row = []any{"app-1", "vac-1", "c1", "Ana", "ana@example.com", fixed}
	a, err := repo.FindByCandidate(ctx, "vac-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", a.CandidateName)
	assert.Equal(t, []any{"vac-1", "c1"}, pool.last().args)

	pool.rows = [][]any{{"app-1", "vac-1", "c1", "Ana", "", fixed}}
	list, err := repo.ListByEmployer(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Contains(t, pool.last().sql, "JOIN vacancies")
}
