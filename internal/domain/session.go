package domain

import (
	"time"
)

// SessionStatus enumerates interview session states.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// QuestionType classifies an interview question.
type QuestionType string

const (
	QuestionTechnical   QuestionType = "technical"
	QuestionBehavioral  QuestionType = "behavioral"
	QuestionSituational QuestionType = "situational"
)

// ParseQuestionType maps free text to a QuestionType, defaulting to technical.
func ParseQuestionType(s string) QuestionType {
	switch QuestionType(s) {
	case QuestionBehavioral, QuestionSituational:
		return QuestionType(s)
	default:
		return QuestionTechnical
	}
}

// Question is one entry of an interview configuration.
type Question struct {
	ID               string       `json:"id" yaml:"id"`
	Question         string       `json:"question" yaml:"question"`
	Type             QuestionType `json:"type" yaml:"type"`
	ExpectedKeywords []string     `json:"expected_keywords" yaml:"expected_keywords"`
	Rubric           string       `json:"rubric" yaml:"rubric"`
	Weight           float64      `json:"weight" yaml:"weight"`
}

// InterviewConfig is the immutable question list a session is bound to.
type InterviewConfig struct {
	Questions    []Question `json:"questions"`
	VacancyID    string     `json:"vacancy_id"`
	VacancyTitle string     `json:"vacancy_title"`
}

// TotalWeight sums question weights.
func (c InterviewConfig) TotalWeight() float64 {
	var sum float64
	for _, q := range c.Questions {
		sum += q.Weight
	}
	return sum
}

// InterviewSession is one candidate's bounded AI interview, 1:1 with an application.
// Invariants: CurrentQuestionIndex < len(Config.Questions) while active;
// AnalysisReport is only set when Status is completed.
type InterviewSession struct {
	ID                   string
	ApplicationID        string
	CandidateID          string
	EmployerID           string
	Status               SessionStatus
	Config               InterviewConfig
	CurrentQuestionIndex int
	ConversationHandle   string
	StartedAt            *time.Time
	CompletedAt          *time.Time
	LastActivityAt       time.Time
	CreatedAt            time.Time
	TotalScore           float64
	MaxPossibleScore     float64
	AnalysisReport       *AnalysisReport
}

// TotalQuestions returns the number of configured questions.
func (s InterviewSession) TotalQuestions() int { return len(s.Config.Questions) }

// CurrentQuestion returns the active question, if any.
func (s InterviewSession) CurrentQuestion() (Question, bool) {
	if s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Config.Questions) {
		return Question{}, false
	}
	return s.Config.Questions[s.CurrentQuestionIndex], true
}

// DurationMinutes returns whole minutes between start and completion, 0 when unknown.
func (s InterviewSession) DurationMinutes() int {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return int(s.CompletedAt.Sub(*s.StartedAt).Minutes())
}

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderCandidate Sender = "candidate"
	SenderAI        Sender = "ai"
	SenderSystem    Sender = "system"
)

// ChatMessage is an append-only transcript entry. Seq is assigned by the
// store and orders messages that share a timestamp.
type ChatMessage struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Seq           int64     `json:"seq"`
	Sender        Sender    `json:"sender"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	QuestionIndex int       `json:"question_index"`
	Score         *float64  `json:"score,omitempty"`
	Evaluation    string    `json:"evaluation,omitempty"`
}

// TurnResult is returned after every exchanged turn.
type TurnResult struct {
	Message         string `json:"message"`
	CurrentQuestion int    `json:"current_question"`
	TotalQuestions  int    `json:"total_questions"`
	IsComplete      bool   `json:"is_complete"`
}

// SessionSnapshot is the client-facing view of a session.
type SessionSnapshot struct {
	SessionID            string        `json:"session_id"`
	Status               SessionStatus `json:"status"`
	CurrentQuestionIndex int           `json:"current_question_index"`
	TotalQuestions       int           `json:"total_questions"`
	IsComplete           bool          `json:"is_complete"`
	TurnIncomplete       bool          `json:"turn_incomplete"`
}

// StartResult is returned when a session is started.
type StartResult struct {
	SessionID          string        `json:"session_id"`
	ConversationHandle string        `json:"ai_session_id"`
	FirstMessage       string        `json:"first_message"`
	Status             SessionStatus `json:"status"`
}
