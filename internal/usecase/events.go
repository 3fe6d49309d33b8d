package usecase

import (
	"log/slog"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-evaluator/internal/observability"
)

// publishEvent emits a lifecycle event. Failures are logged and never returned.
func publishEvent(ctx domain.Context, pub domain.EventPublisher, clock domain.Clock, typ domain.SessionEventType, s domain.InterviewSession) {
	if pub == nil {
		return
	}
	ev := domain.SessionEvent{
		Type:        typ,
		SessionID:   s.ID,
		CandidateID: s.CandidateID,
		EmployerID:  s.EmployerID,
		VacancyID:   s.Config.VacancyID,
		Status:      s.Status,
		OccurredAt:  clock.Now(),
	}
	if s.AnalysisReport != nil {
		score := s.AnalysisReport.QuantitativeScore
		ev.Score = &score
	}
	err := pub.Publish(ctx, ev)
	observability.ObserveEvent(string(typ), err)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("session event publish failed",
			slog.String("type", string(typ)),
			slog.String("session_id", s.ID),
			slog.Any("error", err))
	}
}

func transition(s *domain.InterviewSession, to domain.SessionStatus) {
	observability.ObserveTransition(string(s.Status), string(to))
	s.Status = to
}
