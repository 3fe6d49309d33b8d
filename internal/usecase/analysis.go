package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-evaluator/internal/observability"
)

const (
	DefaultAnalysisTimeout = 120 * time.Second
	defaultAnalystPersona  = "You are an expert HR analyst specializing in SWOT analysis."
)

// AnalysisOptions tunes the analysis engine.
type AnalysisOptions struct {
	Model   string
	Persona string
	Timeout time.Duration
	// TokenBudget caps the transcript part of the SWOT prompt; older lines are
	// dropped first. Zero keeps the whole transcript.
	TokenBudget int
}

// AnalysisEngine turns a completed session into a scored SWOT report. Gateway
// and parsing problems degrade the report, they never fail the analysis.
type AnalysisEngine struct {
	Sessions  domain.SessionRepository
	Messages  domain.MessageRepository
	Vacancies domain.VacancyRepository
	Gateway   domain.Gateway
	Events    domain.EventPublisher
	Clock     domain.Clock

	opts    AnalysisOptions
	counter *tokencount.Counter
}

func NewAnalysisEngine(
	sessions domain.SessionRepository,
	messages domain.MessageRepository,
	vacancies domain.VacancyRepository,
	gw domain.Gateway,
	events domain.EventPublisher,
	opts AnalysisOptions,
) *AnalysisEngine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAnalysisTimeout
	}
	if opts.Persona == "" {
		opts.Persona = defaultAnalystPersona
	}
	return &AnalysisEngine{
		Sessions:  sessions,
		Messages:  messages,
		Vacancies: vacancies,
		Gateway:   gw,
		Events:    events,
		Clock:     domain.SystemClock{},
		opts:      opts,
		counter:   tokencount.DefaultCounter,
	}
}

// Analyze builds, persists and returns the report of a completed session.
// Running it again overwrites the stored report.
func (a *AnalysisEngine) Analyze(ctx domain.Context, sessionID string) (domain.AnalysisReport, error) {
	ctx = obsctx.WithSession(ctx, sessionID)
	s, err := a.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("op=analysis.analyze: %w", err)
	}
	if s.Status != domain.SessionCompleted {
		return domain.AnalysisReport{}, fmt.Errorf("%w: session %s must be completed before analysis, got %s", domain.ErrInvalidState, sessionID, s.Status)
	}
	msgs, err := a.Messages.List(ctx, sessionID)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("op=analysis.analyze: %w", err)
	}
	data, err := a.prepare(ctx, s, msgs)
	if err != nil {
		return domain.AnalysisReport{}, err
	}

	swot, source := a.elicit(ctx, data)
	score := quantitativeScore(s.TotalScore, s.MaxPossibleScore, swot)
	report := domain.AnalysisReport{
		CandidateID:       s.CandidateID,
		VacancyID:         s.Config.VacancyID,
		VacancyTitle:      data.VacancyTitle,
		InterviewDate:     s.CompletedAt,
		QuantitativeScore: score,
		ScoreCategory:     domain.CategoryFor(score),
		SWOT:              swot,
		CrossSWOT:         crossSWOT(swot),
		Recommendations:   recommendations(swot, score),
		Metadata: domain.ReportMetadata{
			TotalQuestions:  s.TotalQuestions(),
			TotalMessages:   len(msgs),
			DurationMinutes: s.DurationMinutes(),
		},
		Source:      source,
		GeneratedAt: a.Clock.Now(),
	}
	if err := a.Sessions.SaveReport(ctx, sessionID, report); err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("op=analysis.save: %w", err)
	}
	observability.ObserveAnalysis(string(source), score)
	obsctx.LoggerFromContext(ctx).Info("interview analyzed",
		slog.String("source", string(source)),
		slog.Float64("score", score),
		slog.String("category", string(report.ScoreCategory)))

	s.AnalysisReport = &report
	publishEvent(ctx, a.Events, a.Clock, domain.EventSessionAnalyzed, s)
	return report, nil
}

func (a *AnalysisEngine) prepare(ctx domain.Context, s domain.InterviewSession, msgs []domain.ChatMessage) (interviewData, error) {
	data := interviewData{
		VacancyTitle:     s.Config.VacancyTitle,
		Questions:        s.Config.Questions,
		Transcript:       msgs,
		TotalScore:       s.TotalScore,
		MaxPossibleScore: s.MaxPossibleScore,
	}
	if a.Vacancies == nil || s.Config.VacancyID == "" {
		return data, nil
	}
	v, err := a.Vacancies.Get(ctx, s.Config.VacancyID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		obsctx.LoggerFromContext(ctx).Warn("vacancy missing for analysis", slog.String("vacancy_id", s.Config.VacancyID))
	case err != nil:
		return interviewData{}, fmt.Errorf("op=analysis.vacancy: %w", err)
	default:
		data.Requirements = v.Requirements
		if v.Title != "" {
			data.VacancyTitle = v.Title
		}
	}
	return data, nil
}

// elicit asks the model for the SWOT quadrants in a fresh conversation and
// falls back to the manual parse, then to the synthetic SWOT.
func (a *AnalysisEngine) elicit(ctx domain.Context, d interviewData) (domain.SWOT, domain.AnalysisSource) {
	lg := obsctx.LoggerFromContext(ctx)
	synthetic := func() (domain.SWOT, domain.AnalysisSource) {
		return syntheticSWOT(len(d.Questions), d.TotalScore, d.MaxPossibleScore), domain.SourceSynthetic
	}

	lines, dropped := a.counter.TrimToBudget(transcriptLines(d.Transcript), a.opts.TokenBudget, a.opts.Model)
	if dropped > 0 {
		lg.Info("transcript trimmed for analysis prompt", slog.Int("dropped_lines", dropped))
	}
	prompt := buildSWOTPrompt(d, lines)

	gctx, cancel := withTimeout(ctx, a.opts.Timeout)
	defer cancel()
	conv, err := a.Gateway.OpenConversation(gctx, a.opts.Persona, a.opts.Model)
	if err != nil {
		lg.Warn("analysis conversation unavailable, using synthetic SWOT", slog.Any("error", err))
		return synthetic()
	}
	reply, err := a.Gateway.ContinueConversation(gctx, conv.Handle, prompt, a.opts.Model)
	if err != nil {
		lg.Warn("analysis request failed, using synthetic SWOT", slog.Any("error", err))
		return synthetic()
	}
	swot, source, ok := parseSWOTResponse(reply)
	if !ok {
		lg.Warn("analysis reply unusable, using synthetic SWOT", slog.Int("reply_len", len(reply)))
		return synthetic()
	}
	return swot, source
}
