package domain

import "time"

// Repositories (ports)

type SessionRepository interface {
	Create(ctx Context, s InterviewSession) (string, error)
	Get(ctx Context, id string) (InterviewSession, error)
	GetByApplication(ctx Context, applicationID string) (InterviewSession, error)
	// Update persists every mutable field of the session.
	Update(ctx Context, s InterviewSession) error
	SaveReport(ctx Context, id string, report AnalysisReport) error
	FindActiveByCandidate(ctx Context, candidateID string) (InterviewSession, error)
	ListByEmployer(ctx Context, employerID string) ([]InterviewSession, error)
	ListAnalyzedByVacancy(ctx Context, vacancyID string) ([]InterviewSession, error)
}

type MessageRepository interface {
	Append(ctx Context, m ChatMessage) (ChatMessage, error)
	List(ctx Context, sessionID string) ([]ChatMessage, error)
	Count(ctx Context, sessionID string) (int, error)
}

type VacancyRepository interface {
	Get(ctx Context, id string) (Vacancy, error)
	SaveQuestions(ctx Context, id string, questions []Question) error
}

type ApplicationRepository interface {
	Create(ctx Context, a Application) (string, error)
	FindByCandidate(ctx Context, vacancyID, candidateID string) (Application, error)
	ListByEmployer(ctx Context, employerID string) ([]Application, error)
}

// Gateway (port) to the text-generation backend. Implementations classify
// failures with ErrGatewayConnection, ErrGatewayTimeout or ErrGatewayMalformed.

type Conversation struct {
	Handle  string
	Opening string
}

type Gateway interface {
	OpenConversation(ctx Context, systemPrompt, model string) (Conversation, error)
	ContinueConversation(ctx Context, handle, userText, model string) (string, error)
	CompleteOnce(ctx Context, prompt, model string) (string, error)
}

// ContentGate (port) decides whether text may be forwarded upstream.

type ModerationResult struct {
	Allowed    bool     `json:"allowed"`
	Flagged    bool     `json:"flagged"`
	Detail     string   `json:"detail"`
	Categories []string `json:"categories"`
	Confidence float64  `json:"confidence"`
}

type ContentGate interface {
	Moderate(ctx Context, text string) (ModerationResult, error)
}

// TurnLocker serialises turns on one session. Acquire returns ErrTurnInFlight
// when the session is already locked.
type TurnLocker interface {
	Acquire(ctx Context, sessionID string) (release func(), err error)
}

// EventPublisher emits session lifecycle events. Failures never block the caller.
type EventPublisher interface {
	Publish(ctx Context, ev SessionEvent) error
}

type SessionEventType string

const (
	EventSessionStarted   SessionEventType = "session.started"
	EventSessionCompleted SessionEventType = "session.completed"
	EventSessionAbandoned SessionEventType = "session.abandoned"
	EventSessionAnalyzed  SessionEventType = "session.analyzed"
)

type SessionEvent struct {
	Type        SessionEventType `json:"type"`
	SessionID   string           `json:"session_id"`
	CandidateID string           `json:"candidate_id"`
	EmployerID  string           `json:"employer_id"`
	VacancyID   string           `json:"vacancy_id"`
	Status      SessionStatus    `json:"status"`
	Score       *float64         `json:"score,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// RateLimiter (port) guards expensive generation calls.
type RateLimiter interface {
	Allow(ctx Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// Clock abstracts time for the idle-timeout check.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
