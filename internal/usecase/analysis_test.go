package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

func completedSession(id string, total, max float64, qs []domain.Question) domain.InterviewSession {
	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	completed := started.Add(24 * time.Minute)
	return domain.InterviewSession{
		ID:               id,
		ApplicationID:    "app-" + id,
		CandidateID:      "cand-" + id,
		EmployerID:       "emp-1",
		Status:           domain.SessionCompleted,
		Config:           domain.InterviewConfig{Questions: qs, VacancyID: "vac-1", VacancyTitle: "Backend Engineer"},
		TotalScore:       total,
		MaxPossibleScore: max,
		StartedAt:        &started,
		CompletedAt:      &completed,
		LastActivityAt:   completed,
	}
}

func newAnalysis(gw domain.Gateway, vacancies domain.VacancyRepository, events domain.EventPublisher) (*usecase.AnalysisEngine, *memSessions, *memMessages) {
	sessions, messages := newMemSessions(), newMemMessages()
	a := usecase.NewAnalysisEngine(sessions, messages, vacancies, gw, events, usecase.AnalysisOptions{Model: "m"})
	a.Clock = newFakeClock()
	return a, sessions, messages
}

func unreachableGateway(t *testing.T) *mocks.MockGateway {
	gw := mocks.NewMockGateway(t)
	gw.On("OpenConversation", mock.Anything, mock.Anything, "m").
		Return(domain.Conversation{}, fmt.Errorf("%w: dial tcp", domain.ErrGatewayConnection))
	return gw
}

func TestAnalysis_SyntheticWhenGatewayUnreachable(t *testing.T) {
	ctx := context.Background()
	a, sessions, _ := newAnalysis(unreachableGateway(t), newMemVacancies(testVacancy()), nil)
	sessions.put(completedSession("s1", 60, 100, threeQuestions()))

	report, err := a.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSynthetic, report.Source)
	assert.Len(t, report.SWOT.Strengths, 4)
	assert.Len(t, report.SWOT.Weaknesses, 4)
	assert.Len(t, report.SWOT.Opportunities, 4)
	assert.Len(t, report.SWOT.Threats, 4)
	assert.Contains(t, report.SWOT.Strengths[0], "Completed all 3 interview questions")
	assert.Contains(t, report.SWOT.Strengths[1], "60.0%")
	// 60/100*60 + 4/8*40
	assert.Equal(t, 56.0, report.QuantitativeScore)
	assert.Equal(t, domain.CategoryFair, report.ScoreCategory)
	assert.NotEmpty(t, report.Recommendations)
	assert.Equal(t, "CONDITIONAL: Consider for position with specific training plan", report.Recommendations[0])
	assert.Equal(t, 24, report.Metadata.DurationMinutes)
	assert.Equal(t, 3, report.Metadata.TotalQuestions)
	assert.Len(t, report.CrossSWOT.SO, 3)

	stored, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, stored.AnalysisReport)
	assert.Equal(t, report.QuantitativeScore, stored.AnalysisReport.QuantitativeScore)
}

func TestAnalysis_ZeroMaxScore(t *testing.T) {
	a, sessions, _ := newAnalysis(unreachableGateway(t), nil, nil)
	sessions.put(completedSession("s1", 0, 0, nil))

	report, err := a.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	// only the SWOT balance term contributes: 4/8*40
	assert.Equal(t, 20.0, report.QuantitativeScore)
	assert.Equal(t, domain.CategoryPoor, report.ScoreCategory)
}

func TestAnalysis_ModelAndManualReplies(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		source domain.AnalysisSource
		score  float64
	}{
		{
			name:   "json reply",
			reply:  "Sure!\n```json\n{\"Strengths\":[\"a\",\"b\",\"c\",\"d\"],\"weaknesses\":[\"e\",\"f\"],\"opportunities\":[],\"threats\":[\"g\"]}\n```",
			source: domain.SourceModel,
			score:  62.67,
		},
		{
			name:   "bulleted reply",
			reply:  "Strengths:\n- Clear communicator\n- Knows Go\nWeaknesses:\n• Little cloud experience\nOpportunities\n- Mentoring\nThreats\n- Salary expectations",
			source: domain.SourceManual,
			score:  62.67,
		},
		{
			name:   "unusable reply",
			reply:  "I cannot help with that.",
			source: domain.SourceSynthetic,
			score:  56,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := mocks.NewMockGateway(t)
			gw.On("OpenConversation", mock.Anything, mock.Anything, "m").
				Return(domain.Conversation{Handle: "an-1"}, nil).Once()
			gw.On("ContinueConversation", mock.Anything, "an-1", mock.MatchedBy(func(p string) bool {
				return containsAll(p, "Backend Engineer", "- Go\n", "INTERVIEW SCORE: 60/100")
			}), "m").Return(tt.reply, nil).Once()

			a, sessions, _ := newAnalysis(gw, newMemVacancies(testVacancy()), nil)
			sessions.put(completedSession("s1", 60, 100, threeQuestions()))

			report, err := a.Analyze(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, tt.source, report.Source)
			assert.InDelta(t, tt.score, report.QuantitativeScore, 0.001)
		})
	}
}

func TestAnalysis_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("session not completed", func(t *testing.T) {
		a, sessions, _ := newAnalysis(mocks.NewMockGateway(t), nil, nil)
		s := completedSession("s1", 0, 100, threeQuestions())
		s.Status = domain.SessionActive
		sessions.put(s)
		_, err := a.Analyze(ctx, "s1")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("unknown session", func(t *testing.T) {
		a, _, _ := newAnalysis(mocks.NewMockGateway(t), nil, nil)
		_, err := a.Analyze(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("missing vacancy is tolerated", func(t *testing.T) {
		a, sessions, _ := newAnalysis(unreachableGateway(t), newMemVacancies(), nil)
		sessions.put(completedSession("s1", 30, 100, threeQuestions()))
		report, err := a.Analyze(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "Backend Engineer", report.VacancyTitle)
	})

	t.Run("vacancy store failure propagates", func(t *testing.T) {
		vacancies := mocks.NewMockVacancyRepository(t)
		vacancies.On("Get", mock.Anything, "vac-1").Return(domain.Vacancy{}, errors.New("connection reset")).Once()
		a, sessions, _ := newAnalysis(mocks.NewMockGateway(t), vacancies, nil)
		sessions.put(completedSession("s1", 30, 100, threeQuestions()))
		_, err := a.Analyze(ctx, "s1")
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("save failure propagates", func(t *testing.T) {
		a, sessions, _ := newAnalysis(unreachableGateway(t), nil, nil)
		sessions.failSave = errors.New("disk full")
		sessions.put(completedSession("s1", 30, 100, threeQuestions()))
		_, err := a.Analyze(ctx, "s1")
		assert.ErrorContains(t, err, "disk full")
	})
}

func TestAnalysis_PublishesAnalyzedEvent(t *testing.T) {
	events := mocks.NewMockEventPublisher(t)
	events.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.SessionEvent) bool {
		return ev.Type == domain.EventSessionAnalyzed && ev.Score != nil && *ev.Score == 56 && ev.VacancyID == "vac-1"
	})).Return(nil).Once()

	a, sessions, _ := newAnalysis(unreachableGateway(t), nil, events)
	sessions.put(completedSession("s1", 60, 100, threeQuestions()))
	_, err := a.Analyze(context.Background(), "s1")
	require.NoError(t, err)
}
