//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return "postgres://postgres:postgres@" + host + ":" + port.Port() + "/app?sslmode=disable"
}

func TestRepositories_Postgres(t *testing.T) {
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool))

	vacancies := postgres.NewVacancyRepo(pool)
	applications := postgres.NewApplicationRepo(pool)
	sessions := postgres.NewSessionRepo(pool)
	messages := postgres.NewMessageRepo(pool)

	vacID, err := vacancies.Upsert(ctx, domain.Vacancy{EmployerID: "emp-1", Title: "Backend Engineer", Requirements: []string{"Go"}})
	require.NoError(t, err)
	qs := []domain.Question{{ID: "q1", Question: "Why Go?", Type: domain.QuestionTechnical, Weight: 100, ExpectedKeywords: []string{"go"}}}
	require.NoError(t, vacancies.SaveQuestions(ctx, vacID, qs))

	now := time.Now().UTC().Truncate(time.Millisecond)
	appID, err := applications.Create(ctx, domain.Application{VacancyID: vacID, CandidateID: "cand-1", CandidateName: "Ana", CreatedAt: now})
	require.NoError(t, err)
	_, err = applications.Create(ctx, domain.Application{VacancyID: vacID, CandidateID: "cand-1", CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrConflict)

	sid, err := sessions.Create(ctx, domain.InterviewSession{
		ApplicationID:  appID,
		CandidateID:    "cand-1",
		EmployerID:     "emp-1",
		Status:         domain.SessionPending,
		Config:         domain.InterviewConfig{Questions: qs, VacancyID: vacID},
		LastActivityAt: now,
		CreatedAt:      now,
	})
	require.NoError(t, err)

	active, err := sessions.FindActiveByCandidate(ctx, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, sid, active.ID)

	for _, sender := range []domain.Sender{domain.SenderAI, domain.SenderCandidate} {
		_, err := messages.Append(ctx, domain.ChatMessage{SessionID: sid, Sender: sender, Content: "hello", Timestamp: now})
		require.NoError(t, err)
	}
	msgs, err := messages.List(ctx, sid)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].Seq)
	assert.Equal(t, int64(2), msgs[1].Seq)

	s, err := sessions.Get(ctx, sid)
	require.NoError(t, err)
	s.Status = domain.SessionCompleted
	s.StartedAt, s.CompletedAt = &now, &now
	s.TotalScore = 100
	require.NoError(t, sessions.Update(ctx, s))
	require.NoError(t, sessions.SaveReport(ctx, sid, domain.AnalysisReport{QuantitativeScore: 100, Source: domain.SourceModel}))

	analyzed, err := sessions.ListAnalyzedByVacancy(ctx, vacID)
	require.NoError(t, err)
	require.Len(t, analyzed, 1)
	require.NotNil(t, analyzed[0].AnalysisReport)
	assert.Equal(t, domain.SourceModel, analyzed[0].AnalysisReport.Source)

	_, err = sessions.FindActiveByCandidate(ctx, "cand-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
