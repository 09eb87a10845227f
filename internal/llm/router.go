package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

const DefaultCallTimeout = 15 * time.Second

// Attempt records one failed provider call inside a Route.
type Attempt struct {
	Provider string
	Code     string
	Err      error
}

// ExhaustedError is returned when every provider in a tier's chain failed.
type ExhaustedError struct {
	Tier     models.Tier
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("no providers configured for tier %s", e.Tier)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s)", a.Provider, a.Code))
	}
	return fmt.Sprintf("all providers exhausted for tier %s: %s", e.Tier, strings.Join(parts, ", "))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// AttemptHook observes every provider call the Router makes. Outcome is
// "success" or the failure code.
type AttemptHook func(tier models.Tier, provider, outcome string, latency time.Duration)

type RouterOption func(*Router)

func WithAttemptHook(hook AttemptHook) RouterOption {
	return func(r *Router) { r.onAttempt = hook }
}

// Router walks a fixed, ordered fallback chain per tier. It holds no mutable
// state after construction and is safe for concurrent use.
type Router struct {
	chains      map[models.Tier][]Provider
	callTimeout time.Duration
	logger      *zap.Logger
	onAttempt   AttemptHook
}

func NewRouter(chains map[models.Tier][]Provider, callTimeout time.Duration, logger *zap.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	copied := make(map[models.Tier][]Provider, len(chains))
	for tier, chain := range chains {
		copied[tier] = append([]Provider(nil), chain...)
	}
	r := &Router{
		chains:      copied,
		callTimeout: callTimeout,
		logger:      logger.Named("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route sends one request down the tier's chain and returns the first success.
func (r *Router) Route(ctx context.Context, tier models.Tier, systemPrompt, userPrompt string, opts models.GenerationOptions) (*models.GenerationResponse, error) {
	chain := r.chains[tier]
	if len(chain) == 0 {
		return nil, &ExhaustedError{Tier: tier}
	}

	req := models.GenerationRequest{
		Tier:         tier,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Options:      opts,
	}

	attempts := make([]Attempt, 0, len(chain))
	for _, p := range chain {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("route %s cancelled after %d attempts: %w", tier, len(attempts), err)
		}

		name := p.GetProviderName()
		resp, latency, err := r.call(ctx, p, req)
		if err == nil {
			r.observe(tier, name, "success", latency)
			if resp.ProviderID == "" {
				resp.ProviderID = name
			}
			if resp.LatencyMs == 0 {
				resp.LatencyMs = int(latency.Milliseconds())
			}
			r.logger.Debug("Provider answered",
				zap.String("tier", string(tier)),
				zap.String("provider", name),
				zap.Int("attempt", len(attempts)+1),
				zap.Duration("latency", latency))
			return resp, nil
		}

		code := ErrorCode(err)
		r.observe(tier, name, code, latency)
		r.logger.Warn("Provider attempt failed",
			zap.String("tier", string(tier)),
			zap.String("provider", name),
			zap.String("code", code),
			zap.Error(err))
		attempts = append(attempts, Attempt{Provider: name, Code: code, Err: err})
	}

	exhausted := &ExhaustedError{Tier: tier, Attempts: attempts}
	r.logger.Error("Fallback chain exhausted", zap.String("tier", string(tier)), zap.Error(exhausted))
	return nil, exhausted
}

func (r *Router) call(ctx context.Context, p Provider, req models.GenerationRequest) (*models.GenerationResponse, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.Generate(callCtx, req)
	latency := time.Since(start)

	if err != nil {
		// a provider that ignores the deadline and surfaces its own error
		// is still a timeout from the chain's point of view
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil && ErrorCode(err) != ErrCodeTimeout {
			err = &ProviderError{Provider: p.GetProviderName(), Code: ErrCodeTimeout, Message: "Call exceeded router timeout", Err: err}
		}
		return nil, latency, err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, latency, InvalidResponse(p.GetProviderName(), "Empty response generated", nil)
	}
	return resp, latency, nil
}

func (r *Router) observe(tier models.Tier, provider, outcome string, latency time.Duration) {
	if r.onAttempt != nil {
		r.onAttempt(tier, provider, outcome, latency)
	}
}

// Chain returns the provider names configured for a tier, in order.
func (r *Router) Chain(tier models.Tier) []string {
	names := make([]string, 0, len(r.chains[tier]))
	for _, p := range r.chains[tier] {
		names = append(names, p.GetProviderName())
	}
	return names
}

// Ready reports whether the tiers the course pipeline uses have a provider.
func (r *Router) Ready() bool {
	return len(r.chains[models.TierFast]) > 0 && len(r.chains[models.TierHeavy]) > 0
}
