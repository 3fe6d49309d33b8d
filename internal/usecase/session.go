// Package usecase contains the interview business logic: the session state
// machine, transcript analysis, employer reporting, document generation and
// application intake.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-evaluator/internal/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/pkg/textx"
)

const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultTurnTimeout = 60 * time.Second
)

// Analyzer produces the report of a completed session.
type Analyzer interface {
	Analyze(ctx domain.Context, sessionID string) (domain.AnalysisReport, error)
}

// SessionOptions tunes the session engine.
type SessionOptions struct {
	ChatModel   string
	Persona     string
	TurnTimeout time.Duration
	IdleTimeout time.Duration
}

// SessionEngine drives the interview state machine
// pending → active → completed | abandoned.
type SessionEngine struct {
	Sessions domain.SessionRepository
	Messages domain.MessageRepository
	Gateway  domain.Gateway
	Gate     domain.ContentGate
	Locker   domain.TurnLocker
	Events   domain.EventPublisher
	Analyzer Analyzer
	Clock    domain.Clock

	opts SessionOptions
}

// NewSessionEngine constructs a SessionEngine. gate, events and analyzer may be nil.
func NewSessionEngine(
	sessions domain.SessionRepository,
	messages domain.MessageRepository,
	gw domain.Gateway,
	gate domain.ContentGate,
	locker domain.TurnLocker,
	events domain.EventPublisher,
	analyzer Analyzer,
	opts SessionOptions,
) *SessionEngine {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = DefaultTurnTimeout
	}
	return &SessionEngine{
		Sessions: sessions,
		Messages: messages,
		Gateway:  gw,
		Gate:     gate,
		Locker:   locker,
		Events:   events,
		Analyzer: analyzer,
		Clock:    domain.SystemClock{},
		opts:     opts,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Create records a pending session bound to the given questions.
func (e *SessionEngine) Create(ctx domain.Context, app domain.Application, vacancy domain.Vacancy, questions []domain.Question) (domain.InterviewSession, error) {
	if len(questions) == 0 {
		return domain.InterviewSession{}, fmt.Errorf("%w: interview questions required", domain.ErrConfiguration)
	}
	cfg := domain.InterviewConfig{Questions: questions, VacancyID: vacancy.ID, VacancyTitle: vacancy.Title}
	now := e.Clock.Now()
	s := domain.InterviewSession{
		ApplicationID:    app.ID,
		CandidateID:      app.CandidateID,
		EmployerID:       vacancy.EmployerID,
		Status:           domain.SessionPending,
		Config:           cfg,
		MaxPossibleScore: cfg.TotalWeight(),
		CreatedAt:        now,
		LastActivityAt:   now,
	}
	id, err := e.Sessions.Create(ctx, s)
	if err != nil {
		return domain.InterviewSession{}, fmt.Errorf("op=session.create: %w", err)
	}
	s.ID = id
	obsctx.LoggerFromContext(ctx).Info("interview session created",
		slog.String("session_id", id),
		slog.String("application_id", app.ID),
		slog.Int("questions", len(questions)))
	return s, nil
}

// Start opens the gateway conversation and records the opening message.
// On gateway failure nothing is written and the session stays pending.
func (e *SessionEngine) Start(ctx domain.Context, sessionID string) (domain.StartResult, error) {
	ctx = obsctx.WithSession(ctx, sessionID)
	release, err := e.Locker.Acquire(ctx, sessionID)
	if err != nil {
		return domain.StartResult{}, err
	}
	defer release()

	s, err := e.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.StartResult{}, fmt.Errorf("op=session.start: %w", err)
	}
	if s.Status != domain.SessionPending {
		return domain.StartResult{}, fmt.Errorf("%w: session %s is %s, not pending", domain.ErrInvalidState, sessionID, s.Status)
	}
	if len(s.Config.Questions) == 0 {
		return domain.StartResult{}, fmt.Errorf("%w: session %s has no questions", domain.ErrConfiguration, sessionID)
	}

	prompt := buildInterviewerPrompt(e.opts.Persona, s.Config.VacancyTitle, s.Config.Questions)
	gctx, cancel := withTimeout(ctx, e.opts.TurnTimeout)
	conv, err := e.Gateway.OpenConversation(gctx, prompt, e.opts.ChatModel)
	cancel()
	if err != nil {
		obsctx.LoggerFromContext(ctx).Error("failed to open interview conversation", slog.Any("error", err))
		return domain.StartResult{}, fmt.Errorf("op=session.start: %w", err)
	}

	// The opening is stored first so an active session always has one.
	now := e.Clock.Now()
	if _, err := e.Messages.Append(ctx, domain.ChatMessage{
		SessionID:     s.ID,
		Sender:        domain.SenderAI,
		Content:       conv.Opening,
		Timestamp:     now,
		QuestionIndex: 0,
	}); err != nil {
		return domain.StartResult{}, fmt.Errorf("op=session.start: %w", err)
	}
	transition(&s, domain.SessionActive)
	s.ConversationHandle = conv.Handle
	s.CurrentQuestionIndex = 0
	s.StartedAt = &now
	s.LastActivityAt = now
	if err := e.Sessions.Update(ctx, s); err != nil {
		return domain.StartResult{}, fmt.Errorf("op=session.start: %w", err)
	}
	publishEvent(ctx, e.Events, e.Clock, domain.EventSessionStarted, s)
	obsctx.LoggerFromContext(ctx).Info("interview started", slog.String("conversation", conv.Handle))
	return domain.StartResult{
		SessionID:          s.ID,
		ConversationHandle: conv.Handle,
		FirstMessage:       conv.Opening,
		Status:             s.Status,
	}, nil
}

// SendMessage records one candidate answer, forwards it to the gateway and
// records the reply, advancing or completing the session.
func (e *SessionEngine) SendMessage(ctx domain.Context, sessionID, text string) (domain.TurnResult, error) {
	text = textx.SanitizeText(text)
	if text == "" {
		return domain.TurnResult{}, fmt.Errorf("%w: message must not be empty", domain.ErrInvalidArgument)
	}
	ctx = obsctx.WithSession(ctx, sessionID)
	release, err := e.Locker.Acquire(ctx, sessionID)
	if err != nil {
		observability.ObserveTurn("busy")
		return domain.TurnResult{}, err
	}
	defer release()

	s, err := e.activeSession(ctx, sessionID)
	if err != nil {
		return domain.TurnResult{}, err
	}
	last, err := e.lastMessage(ctx, sessionID)
	if err != nil {
		return domain.TurnResult{}, err
	}
	if last != nil && last.Sender == domain.SenderCandidate {
		observability.ObserveTurn("incomplete")
		return domain.TurnResult{}, fmt.Errorf("%w: previous answer has no reply, retry the turn or finalize", domain.ErrTurnIncomplete)
	}

	if e.Gate != nil {
		res, err := e.Gate.Moderate(ctx, text)
		if err != nil {
			return domain.TurnResult{}, fmt.Errorf("op=session.send: %w", err)
		}
		if !res.Allowed {
			observability.ObserveTurn("rejected")
			return domain.TurnResult{}, fmt.Errorf("%w: %s", domain.ErrContentRejected, res.Detail)
		}
	}

	q, _ := s.CurrentQuestion()
	score, evaluation := gradeAnswer(q, text)
	now := e.Clock.Now()
	if _, err := e.Messages.Append(ctx, domain.ChatMessage{
		SessionID:     s.ID,
		Sender:        domain.SenderCandidate,
		Content:       text,
		Timestamp:     now,
		QuestionIndex: s.CurrentQuestionIndex,
		Score:         score,
		Evaluation:    evaluation,
	}); err != nil {
		return domain.TurnResult{}, fmt.Errorf("op=session.send: %w", err)
	}
	if score != nil {
		s.TotalScore += *score
	}
	s.LastActivityAt = now
	if err := e.Sessions.Update(ctx, s); err != nil {
		return domain.TurnResult{}, fmt.Errorf("op=session.send: %w", err)
	}
	return e.forward(ctx, s, text)
}

// RetryTurn re-forwards the dangling candidate message of an incomplete turn
// without appending it again.
func (e *SessionEngine) RetryTurn(ctx domain.Context, sessionID string) (domain.TurnResult, error) {
	ctx = obsctx.WithSession(ctx, sessionID)
	release, err := e.Locker.Acquire(ctx, sessionID)
	if err != nil {
		observability.ObserveTurn("busy")
		return domain.TurnResult{}, err
	}
	defer release()

	s, err := e.activeSession(ctx, sessionID)
	if err != nil {
		return domain.TurnResult{}, err
	}
	last, err := e.lastMessage(ctx, sessionID)
	if err != nil {
		return domain.TurnResult{}, err
	}
	if last == nil || last.Sender != domain.SenderCandidate {
		return domain.TurnResult{}, fmt.Errorf("%w: session %s has no incomplete turn", domain.ErrInvalidState, sessionID)
	}
	return e.forward(ctx, s, last.Content)
}

func (e *SessionEngine) forward(ctx domain.Context, s domain.InterviewSession, text string) (domain.TurnResult, error) {
	lg := obsctx.LoggerFromContext(ctx)
	gctx, cancel := withTimeout(ctx, e.opts.TurnTimeout)
	reply, err := e.Gateway.ContinueConversation(gctx, s.ConversationHandle, text, e.opts.ChatModel)
	cancel()
	if err != nil {
		observability.ObserveTurn("incomplete")
		lg.Warn("interview turn incomplete", slog.Int("question_index", s.CurrentQuestionIndex), slog.Any("error", err))
		return domain.TurnResult{}, fmt.Errorf("op=session.send: %w: %w", domain.ErrTurnIncomplete, err)
	}

	now := e.Clock.Now()
	if _, err := e.Messages.Append(ctx, domain.ChatMessage{
		SessionID:     s.ID,
		Sender:        domain.SenderAI,
		Content:       reply,
		Timestamp:     now,
		QuestionIndex: s.CurrentQuestionIndex,
	}); err != nil {
		return domain.TurnResult{}, fmt.Errorf("op=session.send: %w", err)
	}

	if s.CurrentQuestionIndex < s.TotalQuestions()-1 {
		s.CurrentQuestionIndex++
	} else {
		transition(&s, domain.SessionCompleted)
		s.CompletedAt = &now
	}
	s.LastActivityAt = now
	if err := e.Sessions.Update(ctx, s); err != nil {
		return domain.TurnResult{}, fmt.Errorf("op=session.send: %w", err)
	}
	observability.ObserveTurn("ok")

	res := domain.TurnResult{
		Message:         reply,
		CurrentQuestion: s.CurrentQuestionIndex,
		TotalQuestions:  s.TotalQuestions(),
		IsComplete:      s.Status == domain.SessionCompleted,
	}
	if res.IsComplete {
		lg.Info("interview completed", slog.Float64("total_score", s.TotalScore))
		publishEvent(ctx, e.Events, e.Clock, domain.EventSessionCompleted, s)
		e.analyzeAfterCompletion(ctx, s.ID)
	}
	return res, nil
}

// analyzeAfterCompletion runs the analysis of a naturally completed session.
// The turn already succeeded, so a failure here is only logged. The analysis
// keeps its own timeout instead of the remainder of the caller's deadline.
func (e *SessionEngine) analyzeAfterCompletion(ctx domain.Context, sessionID string) {
	if e.Analyzer == nil {
		return
	}
	if _, err := e.Analyzer.Analyze(context.WithoutCancel(ctx), sessionID); err != nil {
		obsctx.LoggerFromContext(ctx).Error("analysis after completion failed", slog.Any("error", err))
	}
}

// IsActive reports whether the session accepts turns. An active session idle
// for longer than the idle timeout is marked abandoned as a side effect.
func (e *SessionEngine) IsActive(ctx domain.Context, sessionID string) (bool, error) {
	s, err := e.Sessions.Get(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("op=session.is_active: %w", err)
	}
	return e.checkActive(ctx, &s)
}

func (e *SessionEngine) checkActive(ctx domain.Context, s *domain.InterviewSession) (bool, error) {
	if s.Status != domain.SessionActive {
		return false, nil
	}
	idle := e.Clock.Now().Sub(s.LastActivityAt)
	if idle <= e.opts.IdleTimeout {
		return true, nil
	}
	transition(s, domain.SessionAbandoned)
	if err := e.Sessions.Update(ctx, *s); err != nil {
		return false, fmt.Errorf("op=session.abandon: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("interview abandoned after inactivity",
		slog.String("session_id", s.ID),
		slog.Duration("idle", idle))
	publishEvent(ctx, e.Events, e.Clock, domain.EventSessionAbandoned, *s)
	return false, nil
}

func (e *SessionEngine) activeSession(ctx domain.Context, sessionID string) (domain.InterviewSession, error) {
	s, err := e.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.InterviewSession{}, fmt.Errorf("op=session.get: %w", err)
	}
	active, err := e.checkActive(ctx, &s)
	if err != nil {
		return domain.InterviewSession{}, err
	}
	if !active {
		return domain.InterviewSession{}, fmt.Errorf("%w: session %s is %s", domain.ErrInvalidState, sessionID, s.Status)
	}
	return s, nil
}

func (e *SessionEngine) lastMessage(ctx domain.Context, sessionID string) (*domain.ChatMessage, error) {
	msgs, err := e.Messages.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=session.messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[len(msgs)-1], nil
}

// Complete moves an active session to completed. Completing an already
// completed session is a no-op.
func (e *SessionEngine) Complete(ctx domain.Context, sessionID string) error {
	s, err := e.Sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("op=session.complete: %w", err)
	}
	return e.complete(ctx, &s)
}

func (e *SessionEngine) complete(ctx domain.Context, s *domain.InterviewSession) error {
	switch s.Status {
	case domain.SessionCompleted:
		return nil
	case domain.SessionActive:
	default:
		return fmt.Errorf("%w: session %s is %s", domain.ErrInvalidState, s.ID, s.Status)
	}
	now := e.Clock.Now()
	transition(s, domain.SessionCompleted)
	s.CompletedAt = &now
	s.LastActivityAt = now
	if err := e.Sessions.Update(ctx, *s); err != nil {
		return fmt.Errorf("op=session.complete: %w", err)
	}
	publishEvent(ctx, e.Events, e.Clock, domain.EventSessionCompleted, *s)
	return nil
}

// Finalize ends an active interview early and returns its analysis.
func (e *SessionEngine) Finalize(ctx domain.Context, sessionID string) (domain.AnalysisReport, error) {
	ctx = obsctx.WithSession(ctx, sessionID)
	release, err := e.Locker.Acquire(ctx, sessionID)
	if err != nil {
		return domain.AnalysisReport{}, err
	}
	defer release()

	s, err := e.activeSession(ctx, sessionID)
	if err != nil {
		return domain.AnalysisReport{}, err
	}
	if err := e.complete(ctx, &s); err != nil {
		return domain.AnalysisReport{}, err
	}
	obsctx.LoggerFromContext(ctx).Info("interview finalized by candidate", slog.Int("question_index", s.CurrentQuestionIndex))
	if e.Analyzer == nil {
		return domain.AnalysisReport{}, fmt.Errorf("%w: analysis not configured", domain.ErrInternal)
	}
	return e.Analyzer.Analyze(ctx, sessionID)
}

// Get returns the stored session.
func (e *SessionEngine) Get(ctx domain.Context, sessionID string) (domain.InterviewSession, error) {
	s, err := e.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.InterviewSession{}, fmt.Errorf("op=session.get: %w", err)
	}
	return s, nil
}

// Snapshot returns the client view of a session, applying the idle check.
func (e *SessionEngine) Snapshot(ctx domain.Context, sessionID string) (domain.SessionSnapshot, error) {
	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if _, err := e.checkActive(ctx, &s); err != nil {
		return domain.SessionSnapshot{}, err
	}
	snap := domain.SessionSnapshot{
		SessionID:            s.ID,
		Status:               s.Status,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		TotalQuestions:       s.TotalQuestions(),
		IsComplete:           s.Status == domain.SessionCompleted,
	}
	if s.Status == domain.SessionActive {
		last, err := e.lastMessage(ctx, sessionID)
		if err != nil {
			return domain.SessionSnapshot{}, err
		}
		snap.TurnIncomplete = last != nil && last.Sender == domain.SenderCandidate
	}
	return snap, nil
}

// History returns the ordered transcript.
func (e *SessionEngine) History(ctx domain.Context, sessionID string) ([]domain.ChatMessage, error) {
	if _, err := e.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	msgs, err := e.Messages.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=session.history: %w", err)
	}
	return msgs, nil
}

// ActiveForCandidate returns the candidate's most recent pending or active
// session. A session found idle is abandoned and reported as not found.
func (e *SessionEngine) ActiveForCandidate(ctx domain.Context, candidateID string) (domain.InterviewSession, error) {
	if candidateID == "" {
		return domain.InterviewSession{}, fmt.Errorf("%w: candidate_id required", domain.ErrInvalidArgument)
	}
	s, err := e.Sessions.FindActiveByCandidate(ctx, candidateID)
	if err != nil {
		return domain.InterviewSession{}, fmt.Errorf("op=session.active_for_candidate: %w", err)
	}
	if s.Status == domain.SessionActive {
		active, err := e.checkActive(ctx, &s)
		if err != nil {
			return domain.InterviewSession{}, err
		}
		if !active {
			return domain.InterviewSession{}, fmt.Errorf("%w: no active session for candidate", domain.ErrNotFound)
		}
	}
	return s, nil
}

// Report returns the stored analysis of a session.
func (e *SessionEngine) Report(ctx domain.Context, sessionID string) (domain.AnalysisReport, error) {
	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return domain.AnalysisReport{}, err
	}
	if s.AnalysisReport == nil {
		return domain.AnalysisReport{}, fmt.Errorf("%w: session %s has no report", domain.ErrNotFound, sessionID)
	}
	return *s.AnalysisReport, nil
}
