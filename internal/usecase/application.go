package usecase

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-evaluator/internal/observability"
)

// ApplyResult is returned by ApplicationService.Apply.
type ApplyResult struct {
	Application domain.Application
	Session     domain.InterviewSession
	Existing    bool
}

// ApplicationService records a candidate's application and prepares the
// interview session bound to it.
type ApplicationService struct {
	Vacancies    domain.VacancyRepository
	Applications domain.ApplicationRepository
	Sessions     domain.SessionRepository
	Engine       *SessionEngine
	Generator    *GenerationService
	Clock        domain.Clock

	fallback []domain.Question
}

func NewApplicationService(
	vacancies domain.VacancyRepository,
	applications domain.ApplicationRepository,
	sessions domain.SessionRepository,
	engine *SessionEngine,
	generator *GenerationService,
	fallback []domain.Question,
) *ApplicationService {
	return &ApplicationService{
		Vacancies:    vacancies,
		Applications: applications,
		Sessions:     sessions,
		Engine:       engine,
		Generator:    generator,
		Clock:        domain.SystemClock{},
		fallback:     fallback,
	}
}

// Apply is idempotent per (vacancy, candidate): a repeated call returns the
// existing application and its session.
func (a *ApplicationService) Apply(ctx domain.Context, vacancyID string, c domain.Candidate) (ApplyResult, error) {
	if vacancyID == "" || c.ID == "" {
		return ApplyResult{}, fmt.Errorf("%w: vacancy and candidate required", domain.ErrInvalidArgument)
	}
	v, err := a.Vacancies.Get(ctx, vacancyID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("op=application.apply: %w", err)
	}

	app, err := a.Applications.FindByCandidate(ctx, vacancyID, c.ID)
	switch {
	case err == nil:
		s, serr := a.Sessions.GetByApplication(ctx, app.ID)
		if serr == nil {
			return ApplyResult{Application: app, Session: s, Existing: true}, nil
		}
		if !errors.Is(serr, domain.ErrNotFound) {
			return ApplyResult{}, fmt.Errorf("op=application.apply: %w", serr)
		}
	case errors.Is(err, domain.ErrNotFound):
		app = domain.Application{
			VacancyID:      vacancyID,
			CandidateID:    c.ID,
			CandidateName:  c.Name,
			CandidateEmail: c.Email,
			CreatedAt:      a.Clock.Now(),
		}
		id, cerr := a.Applications.Create(ctx, app)
		if errors.Is(cerr, domain.ErrConflict) {
			// lost a race with a concurrent apply of the same candidate
			return a.Apply(ctx, vacancyID, c)
		}
		if cerr != nil {
			return ApplyResult{}, fmt.Errorf("op=application.apply: %w", cerr)
		}
		app.ID = id
	default:
		return ApplyResult{}, fmt.Errorf("op=application.apply: %w", err)
	}

	s, err := a.Engine.Create(ctx, app, v, a.questionsFor(ctx, v))
	if err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Application: app, Session: s}, nil
}

// questionsFor prefers the vacancy's own questions, then a generated set,
// then the configured fallback bank.
func (a *ApplicationService) questionsFor(ctx domain.Context, v domain.Vacancy) []domain.Question {
	if len(v.Questions) > 0 {
		return v.Questions
	}
	if a.Generator != nil {
		qs, err := a.Generator.GenerateInterview(ctx, v.ID, defaultInterviewQuestions)
		if err == nil && len(qs) > 0 {
			return qs
		}
		obsctx.LoggerFromContext(ctx).Warn("interview generation failed, using fallback questions",
			slog.String("vacancy_id", v.ID), slog.Any("error", err))
	}
	return a.fallback
}
