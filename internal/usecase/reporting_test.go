package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

func analyzed(id string, total, quant float64, swot domain.SWOT, recs []string, completedAt time.Time) domain.InterviewSession {
	s := completedSession(id, total, 100, threeQuestions())
	startedAt := completedAt.Add(-24 * time.Minute)
	s.StartedAt = &startedAt
	s.CompletedAt = &completedAt
	s.AnalysisReport = &domain.AnalysisReport{
		QuantitativeScore: quant,
		ScoreCategory:     domain.CategoryFor(quant),
		SWOT:              swot,
		Recommendations:   recs,
	}
	return s
}

func TestReporting_EmptyEmployer(t *testing.T) {
	sessions := newMemSessions()
	pending := completedSession("p", 0, 100, threeQuestions())
	pending.Status = domain.SessionPending
	sessions.put(pending)
	unanalyzed := completedSession("u", 0, 100, threeQuestions())
	sessions.put(unanalyzed)

	r := usecase.NewReportingEngine(sessions, newMemApplications(nil))
	rep, err := r.EmployerReport(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "No completed interviews available for analysis", rep.Message)
	assert.Zero(t, rep.Summary.TotalInterviews)
	assert.NotNil(t, rep.Insights.TopStrengths)
	assert.NotNil(t, rep.Insights.RecommendationTrends)

	_, err = r.EmployerReport(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestReporting_EmployerReport(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	swotA := domain.SWOT{
		Strengths:  []string{"Excellent communication skills", "Strong debugging"},
		Weaknesses: []string{"Limited kubernetes exposure"},
	}
	swotB := domain.SWOT{
		Strengths:  []string{"Clear communication with stakeholders"},
		Weaknesses: []string{"Limited kubernetes knowledge", "Nervous"},
	}
	sessions := newMemSessions()
	sessions.put(analyzed("a", 90, 85, swotA, []string{"Request portfolio or work samples", "Hire"}, base))
	sessions.put(analyzed("b", 50, 55, swotB, []string{"Request portfolio or work samples"}, base.Add(time.Hour)))
	sessions.put(analyzed("c", 10, 20, domain.SWOT{}, nil, base.Add(2*time.Hour)))
	abandoned := completedSession("d", 0, 100, threeQuestions())
	abandoned.Status = domain.SessionAbandoned
	sessions.put(abandoned)

	r := usecase.NewReportingEngine(sessions, newMemApplications(nil))
	r.Clock = newFakeClock()
	rep, err := r.EmployerReport(context.Background(), "emp-1")
	require.NoError(t, err)

	assert.Empty(t, rep.Message)
	assert.Equal(t, 3, rep.Summary.TotalInterviews)
	assert.Equal(t, 50.0, rep.Summary.AverageScore)
	assert.Equal(t, 75.0, rep.Summary.CompletionRate)
	assert.Equal(t, domain.ScoreDistribution{Excellent: 1, Fair: 1, Poor: 1}, rep.Summary.ScoreDistribution)

	assert.Equal(t, []string{"limited", "kubernetes"}, rep.Insights.CommonWeaknesses)
	assert.Equal(t, []string{"communication"}, rep.Insights.TopStrengths)
	require.NotEmpty(t, rep.Insights.RecommendationTrends)
	assert.Equal(t, domain.RecommendationTrend{Recommendation: "Request portfolio or work samples", Count: 2}, rep.Insights.RecommendationTrends[0])

	assert.Equal(t, 53.33, rep.Effectiveness.RequirementFulfillment)
	assert.Equal(t, 75.0, rep.Effectiveness.CandidateEngagement)
	// 3 questions of a 5 target, 24 of 30 minutes
	assert.Equal(t, 70.0, rep.Effectiveness.InterviewQuality)
	assert.Len(t, rep.Recommendations, 4)
}

func TestReporting_Ranking(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	sessions := newMemSessions()
	sessions.put(analyzed("a", 0, 70, domain.SWOT{}, nil, base.Add(time.Hour)))
	sessions.put(analyzed("b", 0, 90, domain.SWOT{}, nil, base.Add(2*time.Hour)))
	sessions.put(analyzed("c", 0, 70, domain.SWOT{}, nil, base))
	other := analyzed("d", 0, 99, domain.SWOT{}, nil, base)
	other.Config.VacancyID = "vac-2"
	sessions.put(other)

	r := usecase.NewReportingEngine(sessions, newMemApplications(nil))
	rows, err := r.Ranking(context.Background(), "vac-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{rows[0].SessionID, rows[1].SessionID, rows[2].SessionID})
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
	assert.Equal(t, domain.CategoryExcellent, rows[0].ScoreCategory)
}

func TestReporting_Candidates(t *testing.T) {
	ctx := context.Background()
	apps := newMemApplications(map[string]string{"vac-1": "emp-1", "vac-9": "emp-9"})
	id1, _ := apps.Create(ctx, domain.Application{VacancyID: "vac-1", CandidateID: "c1", CandidateName: "Ana"})
	_, _ = apps.Create(ctx, domain.Application{VacancyID: "vac-1", CandidateID: "c2"})
	_, _ = apps.Create(ctx, domain.Application{VacancyID: "vac-9", CandidateID: "c3"})

	sessions := newMemSessions()
	s := analyzed("s1", 0, 66, domain.SWOT{}, nil, time.Now())
	s.ApplicationID = id1
	sessions.put(s)

	r := usecase.NewReportingEngine(sessions, apps)
	rows, err := r.Candidates(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "s1", rows[0].SessionID)
	require.NotNil(t, rows[0].QuantitativeScore)
	assert.Equal(t, 66.0, *rows[0].QuantitativeScore)
	assert.Equal(t, domain.CategoryGood, rows[0].ScoreCategory)
	assert.Empty(t, rows[1].SessionID)
	assert.Nil(t, rows[1].QuantitativeScore)
}
