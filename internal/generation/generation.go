// Package generation turns a topic into a GenerationResult: one analysis
// call, a concurrent fan-out over the lesson sections, and one task call,
// each behind the cache and each with a deterministic fallback.
package generation

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

var (
	ErrNilAnalysis      = errors.New("analysis is required")
	ErrEmptyTopic       = errors.New("topic is required")
	ErrValidationFailed = errors.New("response failed validation")
)

// Completer is the part of llm.Router the generators need.
type Completer interface {
	Route(ctx context.Context, tier models.Tier, systemPrompt, userPrompt string, opts models.GenerationOptions) (*models.GenerationResponse, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, tier models.Tier, systemPrompt, userPrompt string, opts models.GenerationOptions) (*models.GenerationResponse, error)

func (f CompleterFunc) Route(ctx context.Context, tier models.Tier, systemPrompt, userPrompt string, opts models.GenerationOptions) (*models.GenerationResponse, error) {
	return f(ctx, tier, systemPrompt, userPrompt, opts)
}

var validate = validator.New(validator.WithRequiredStructEnabled())
