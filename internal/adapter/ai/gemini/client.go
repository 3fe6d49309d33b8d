// Package gemini implements domain.Gateway on the Google Gemini API through
// google.golang.org/genai. Conversation history lives in a conversation.Store
// and is replayed as contents on every turn.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/conversation"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/config"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

const (
	provider     = "gemini"
	defaultModel = "gemini-2.0-flash"
	openingNudge = "Begin the conversation with a brief greeting."
)

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements domain.Gateway.
type Client struct {
	models       contentGenerator
	store        conversation.Store
	breakers     *ai.CircuitBreakers
	temperature  float32
	historyTurns int
	defaultModel string
}

// New creates a Gemini-backed gateway.
func New(ctx context.Context, cfg config.Config, store conversation.Store, breakers *ai.CircuitBreakers) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY missing", domain.ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("op=gemini.new: %w", err)
	}
	return newWithGenerator(client.Models, cfg, store, breakers), nil
}

func newWithGenerator(models contentGenerator, cfg config.Config, store conversation.Store, breakers *ai.CircuitBreakers) *Client {
	if breakers == nil {
		breakers = ai.NewCircuitBreakers(cfg.AICircuitThreshold, cfg.AICircuitCooldown)
	}
	model := cfg.ChatModel
	if model == "" || !strings.HasPrefix(model, "gemini") {
		model = defaultModel
	}
	return &Client{
		models:       models,
		store:        store,
		breakers:     breakers,
		temperature:  float32(cfg.AITemperature),
		historyTurns: cfg.HistoryTurns,
		defaultModel: model,
	}
}

func (c *Client) OpenConversation(ctx domain.Context, systemPrompt, model string) (domain.Conversation, error) {
	model = c.model(model)
	opening, err := c.generate(ctx, "open", model, systemPrompt, []*genai.Content{genai.NewContentFromText(openingNudge, genai.RoleUser)})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("op=gateway.open: %w", err)
	}
	handle, err := c.store.Create(ctx, systemPrompt, model)
	if err == nil {
		err = c.store.Append(ctx, handle, conversation.Turn{User: openingNudge, Assistant: opening})
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("op=gateway.open: %w: %w", domain.ErrGatewayConnection, err)
	}
	return domain.Conversation{Handle: handle, Opening: opening}, nil
}

func (c *Client) ContinueConversation(ctx domain.Context, handle, userText, model string) (string, error) {
	rec, err := c.store.Get(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("op=gateway.continue: %w: %w", domain.ErrGatewayConnection, err)
	}
	if model == "" {
		model = rec.Model
	}
	model = c.model(model)

	var contents []*genai.Content
	for _, t := range rec.Window(c.historyTurns) {
		contents = append(contents,
			genai.NewContentFromText(t.User, genai.RoleUser),
			genai.NewContentFromText(t.Assistant, genai.RoleModel))
	}
	contents = append(contents, genai.NewContentFromText(userText, genai.RoleUser))

	reply, err := c.generate(ctx, "continue", model, rec.System, contents)
	if err != nil {
		return "", fmt.Errorf("op=gateway.continue: %w", err)
	}
	if err := c.store.Append(ctx, handle, conversation.Turn{User: userText, Assistant: reply}); err != nil {
		slog.Warn("conversation history append failed", slog.String("handle", handle), slog.Any("error", err))
	}
	return reply, nil
}

func (c *Client) CompleteOnce(ctx domain.Context, prompt, model string) (string, error) {
	out, err := c.generate(ctx, "once", c.model(model), "", []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)})
	if err != nil {
		return "", fmt.Errorf("op=gateway.once: %w", err)
	}
	return out, nil
}

// model maps non-Gemini model names (the Ollama defaults) to the configured Gemini model.
func (c *Client) model(m string) string {
	if strings.HasPrefix(m, "gemini") {
		return m
	}
	return c.defaultModel
}

func (c *Client) generate(ctx domain.Context, op, model, system string, contents []*genai.Content) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(c.temperature)}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	var out string
	err := c.breakers.For(provider+"/"+op).Execute(func() error {
		start := time.Now()
		resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			out, err = text(resp)
		} else {
			err = classify(ctx, err)
		}
		observability.ObserveAIRequest(provider, op, err, time.Since(start))
		return err
	})
	return out, err
}

func text(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", domain.ErrGatewayMalformed)
	}
	out := resp.Text()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: no text candidates", domain.ErrGatewayMalformed)
	}
	return out, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusGatewayTimeout {
		return fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayConnection, err)
}
