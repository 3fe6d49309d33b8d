// Package openai implements domain.Gateway against any OpenAI-compatible
// chat-completions endpoint (Ollama, OpenRouter, OpenAI). Conversations are
// replayed from a conversation.Store on every turn.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/conversation"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/config"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

const provider = "openai"

// OpeningNudge is the user turn that asks the model for its first message.
const OpeningNudge = "Begin the conversation with a brief greeting."

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client implements domain.Gateway.
type Client struct {
	cfg      config.Config
	hc       *http.Client
	store    conversation.Store
	breakers *ai.CircuitBreakers
}

// New constructs a gateway client. Per-call deadlines come from the context.
func New(cfg config.Config, store conversation.Store, breakers *ai.CircuitBreakers) *Client {
	if breakers == nil {
		breakers = ai.NewCircuitBreakers(cfg.AICircuitThreshold, cfg.AICircuitCooldown)
	}
	return &Client{
		cfg:      cfg,
		hc:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		store:    store,
		breakers: breakers,
	}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// OpenConversation asks the model for an opening message under systemPrompt
// and stores the conversation.
func (c *Client) OpenConversation(ctx domain.Context, systemPrompt, model string) (domain.Conversation, error) {
	model = c.model(model)
	opening, err := c.chat(ctx, "open", model, []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: OpeningNudge},
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("op=gateway.open: %w", err)
	}
	handle, err := c.store.Create(ctx, systemPrompt, model)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("op=gateway.open: %w: %w", domain.ErrGatewayConnection, err)
	}
	if err := c.store.Append(ctx, handle, conversation.Turn{User: OpeningNudge, Assistant: opening}); err != nil {
		return domain.Conversation{}, fmt.Errorf("op=gateway.open: %w: %w", domain.ErrGatewayConnection, err)
	}
	return domain.Conversation{Handle: handle, Opening: opening}, nil
}

// ContinueConversation replays the last HISTORY_TURNS exchanges plus userText.
func (c *Client) ContinueConversation(ctx domain.Context, handle, userText, model string) (string, error) {
	rec, err := c.store.Get(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("op=gateway.continue: %w: %w", domain.ErrGatewayConnection, err)
	}
	if model == "" {
		model = rec.Model
	}
	model = c.model(model)

	msgs := []message{{Role: "system", Content: rec.System}}
	for _, t := range rec.Window(c.cfg.HistoryTurns) {
		msgs = append(msgs, message{Role: "user", Content: t.User}, message{Role: "assistant", Content: t.Assistant})
	}
	msgs = append(msgs, message{Role: "user", Content: userText})

	reply, err := c.chat(ctx, "continue", model, msgs)
	if err != nil {
		return "", fmt.Errorf("op=gateway.continue: %w", err)
	}
	if err := c.store.Append(ctx, handle, conversation.Turn{User: userText, Assistant: reply}); err != nil {
		// the reply is still valid for this turn; only later context is lost
		slog.Warn("conversation history append failed", slog.String("handle", handle), slog.Any("error", err))
	}
	return reply, nil
}

// CompleteOnce sends a single prompt without conversation state.
func (c *Client) CompleteOnce(ctx domain.Context, prompt, model string) (string, error) {
	out, err := c.chat(ctx, "once", c.model(model), []message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("op=gateway.once: %w", err)
	}
	return out, nil
}

func (c *Client) model(m string) string {
	if m == "" {
		return c.cfg.ChatModel
	}
	return m
}

func (c *Client) chat(ctx domain.Context, op, model string, msgs []message) (string, error) {
	var out string
	err := c.breakers.For(provider+"/"+op).Execute(func() error {
		start := time.Now()
		var err error
		out, err = c.do(ctx, op, model, msgs)
		observability.ObserveAIRequest(provider, op, err, time.Since(start))
		return err
	})
	return out, err
}

func (c *Client) do(ctx domain.Context, op, model string, msgs []message) (string, error) {
	counted := make([]tokencount.Message, len(msgs))
	for i, m := range msgs {
		counted[i] = tokencount.Message{Role: m.Role, Content: m.Content}
	}
	slog.Debug("calling chat completions",
		slog.String("provider", provider),
		slog.String("op", op),
		slog.String("model", model),
		slog.Int("messages", len(msgs)),
		slog.Int("prompt_tokens", tokencount.DefaultCounter.CountChat(counted, model)))

	b, err := json.Marshal(map[string]any{
		"model":       model,
		"temperature": c.cfg.AITemperature,
		"stream":      false,
		"messages":    msgs,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", domain.ErrGatewayMalformed, err)
	}
	endpoint := strings.TrimRight(c.cfg.AIBaseURL, "/") + "/chat/completions"

	var content string
	attempt := func() error {
		// Recreate request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrGatewayConnection, err))
		}
		r.Header.Set("Content-Type", "application/json")
		if c.cfg.AIAPIKey != "" {
			r.Header.Set("Authorization", "Bearer "+c.cfg.AIAPIKey)
		}
		resp, err := c.hc.Do(r)
		if err != nil {
			return classifyTransport(ctx, err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return classifyTransport(ctx, err)
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			slog.Warn("ai provider retryable status", slog.String("provider", provider), slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("%w: status %d", domain.ErrGatewayConnection, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			slog.Warn("ai provider 4xx", slog.String("provider", provider), slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("model", model), slog.String("body", snippet(body, 256)))
			return backoff.Permanent(fmt.Errorf("%w: status %d", domain.ErrGatewayConnection, resp.StatusCode))
		}

		res := gjson.GetBytes(body, "choices.0.message.content")
		if !gjson.ValidBytes(body) || !res.Exists() || strings.TrimSpace(res.String()) == "" {
			return backoff.Permanent(fmt.Errorf("%w: no message content (%s)", domain.ErrGatewayMalformed, snippet(body, 128)))
		}
		content = res.String()
		return nil
	}

	var bo backoff.BackOff = c.getBackoffConfig()
	if c.cfg.AIMaxRetries >= 0 {
		bo = backoff.WithMaxRetries(bo, uint64(c.cfg.AIMaxRetries))
	}
	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, domain.ErrGateway) {
			return "", classifyTransport(ctx, ctxErr)
		}
		return "", err
	}
	return content, nil
}

// classifyTransport maps a transport failure onto the gateway taxonomy.
// Deadline errors are permanent because the caller's budget is spent.
func classifyTransport(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err))
	}
	if errors.Is(err, context.Canceled) {
		return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrGatewayConnection, err))
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayConnection, err)
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
