package gemini

import (
	"errors"

	"github.com/x1syne/ai-study-agent-sub001/internal/llm"
)

const (
	DefaultModel      = "gemini-2.5-flash"
	DefaultAPIVersion = "v1beta"
)

// holds Gemini-specific configuration
type Config struct {
	Name      string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

func NewConfig(pc llm.ProviderConfig) (*Config, error) {
	if pc.APIKey == "" {
		return nil, errors.New("gemini: api key is required (GEMINI_API_KEY)")
	}

	model := pc.Model
	if model == "" {
		model = DefaultModel
	}

	name := pc.Name
	if name == "" {
		name = "gemini"
	}

	return &Config{
		Name:      name,
		APIKey:    pc.APIKey,
		Model:     model,
		BaseURL:   pc.BaseURL,
		MaxTokens: pc.MaxTokens,
	}, nil
}
