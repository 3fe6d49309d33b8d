package moderation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/config"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-evaluator/internal/observability"
)

// Provider is one remote moderation service. Check never fails: transport or
// decoding problems are reported as Unavailable.
type Provider interface {
	Name() string
	Check(ctx context.Context, text string) Verdict
}

// Gate implements domain.ContentGate.
type Gate struct {
	policy    Policy
	providers []Provider
	timeout   time.Duration
}

// NewGate builds a gate over at most two providers. With none configured every
// decision comes from the local rules.
func NewGate(policy Policy, timeout time.Duration, providers ...Provider) *Gate {
	if policy == "" {
		policy = PolicyAnyReject
	}
	return &Gate{policy: policy, providers: providers, timeout: timeout}
}

// NewGateFromConfig wires the providers whose keys are present.
func NewGateFromConfig(cfg config.Config) *Gate {
	var providers []Provider
	if cfg.OpenAIModerationKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIModerationURL, cfg.OpenAIModerationKey, cfg.ModerationTimeout))
	}
	if cfg.PerspectiveAPIKey != "" {
		providers = append(providers, NewPerspectiveProvider(cfg.PerspectiveURL, cfg.PerspectiveAPIKey, cfg.ModerationThreshold, cfg.ModerationTimeout))
	}
	return NewGate(Policy(cfg.ModerationPolicy), cfg.ModerationTimeout, providers...)
}

func (g *Gate) Moderate(ctx domain.Context, text string) (domain.ModerationResult, error) {
	verdicts := g.checkAll(ctx, text)

	combined := Unavailable("none", "no provider configured")
	for _, v := range verdicts {
		observability.ObserveModeration(v.Provider, v.Kind.String())
		combined = Combine(g.policy, combined, v)
	}
	confidence := 0.8
	if len(verdicts) > 1 {
		confidence = 0.95
	}
	if combined.Kind == KindUnavailable {
		if len(verdicts) > 0 {
			obsctx.LoggerFromContext(ctx).Warn("moderation providers undecided, using local rules",
				slog.String("detail", combined.Detail))
		}
		combined = CheckLocal(text)
		observability.ObserveModeration(localProvider, combined.Kind.String())
		confidence = 0.6
	}
	return toResult(combined, confidence), nil
}

func (g *Gate) checkAll(ctx context.Context, text string) []Verdict {
	if len(g.providers) == 0 {
		return nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	out := make([]Verdict, len(g.providers))
	var wg sync.WaitGroup
	for i, p := range g.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			out[i] = p.Check(ctx, text)
		}(i, p)
	}
	wg.Wait()
	return out
}

func toResult(v Verdict, confidence float64) domain.ModerationResult {
	rejected := v.Kind == KindRejected
	cats := v.Categories
	if cats == nil {
		cats = []string{}
	}
	return domain.ModerationResult{
		Allowed:    !rejected,
		Flagged:    rejected,
		Detail:     v.Detail,
		Categories: cats,
		Confidence: confidence,
	}
}
