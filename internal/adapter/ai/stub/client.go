// Package stub is a deterministic domain.Gateway for local development and
// tests. It walks the numbered question list found in the system prompt and
// answers one-shot prompts with fixed, schema-valid JSON documents.
package stub

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

var questionLine = regexp.MustCompile(`(?m)^\s*\d+\.\s+(.+?)\s+\(Type:`)

type conversation struct {
	questions []string
	asked     int
}

// Client implements domain.Gateway without any network access.
type Client struct {
	mu    sync.Mutex
	convs map[string]*conversation
}

func New() *Client { return &Client{convs: map[string]*conversation{}} }

func (c *Client) OpenConversation(ctx domain.Context, systemPrompt, _ string) (domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	}
	conv := &conversation{}
	for _, m := range questionLine.FindAllStringSubmatch(systemPrompt, -1) {
		conv.questions = append(conv.questions, m[1])
	}
	opening := "Hello! Thank you for joining this interview."
	if len(conv.questions) > 0 {
		opening += " Let's start with the first question: " + conv.questions[0]
		conv.asked = 1
	}
	handle := uuid.NewString()
	c.mu.Lock()
	c.convs[handle] = conv
	c.mu.Unlock()
	return domain.Conversation{Handle: handle, Opening: opening}, nil
}

func (c *Client) ContinueConversation(ctx domain.Context, handle, userText, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[handle]
	if !ok {
		return "", fmt.Errorf("%w: unknown conversation %s", domain.ErrGatewayConnection, handle)
	}
	if len(conv.questions) == 0 && strings.Contains(userText, "SWOT") {
		return swotDocument, nil
	}
	if conv.asked < len(conv.questions) {
		q := conv.questions[conv.asked]
		conv.asked++
		return "Thank you for your answer. Next question: " + q, nil
	}
	return "Thank you for your time. That concludes our interview.", nil
}

func (c *Client) CompleteOnce(ctx domain.Context, prompt, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	}
	switch {
	case strings.Contains(prompt, "SWOT"):
		return swotDocument, nil
	case strings.Contains(prompt, `"options"`):
		return examDocument, nil
	case strings.Contains(prompt, "expected_keywords"):
		return interviewDocument, nil
	case strings.Contains(prompt, "suggested_description"):
		return vacancyDocument, nil
	default:
		return "{}", nil
	}
}

const swotDocument = "```json\n" + `{
  "strengths": ["Clear explanation of concurrency primitives", "Structured problem solving"],
  "weaknesses": ["Limited production incident experience"],
  "opportunities": ["Growth into system design ownership"],
  "threats": ["Competition from more senior applicants"]
}` + "\n```"

const examDocument = `{
  "title": "Backend fundamentals",
  "meta": {"level": "mid", "count": 2},
  "questions": [
    {"id": "1", "q": "Which HTTP status signals a rate limit?", "options": ["200", "404", "429", "500"], "answer": "429", "why": "Too Many Requests", "rubrics": "exact"},
    {"id": "2", "q": "Which isolation level prevents dirty reads?", "options": ["Read uncommitted", "Read committed", "None", "Chaos"], "answer": "Read committed", "why": "By definition", "rubrics": "exact"}
  ]
}`

const interviewDocument = `{
  "questions": [
    {"id": "q1", "question": "Describe a system you designed end to end.", "type": "technical", "expected_keywords": ["design", "scalability"], "weight": 40},
    {"id": "q2", "question": "Tell me about a conflict within your team.", "type": "behavioral", "expected_keywords": ["communication"], "weight": 30},
    {"id": "q3", "question": "Production is down during a release. What do you do?", "type": "situational", "expected_keywords": ["rollback", "monitoring"], "weight": 30}
  ]
}`

const vacancyDocument = `{
  "title": "Backend Engineer",
  "suggested_description": "Build and operate reliable backend services.",
  "suggested_requirements": "- 3+ years with Go\n- Experience with PostgreSQL\n- Familiarity with Kafka"
}`
