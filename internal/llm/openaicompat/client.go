// Package openaicompat adapts any OpenAI chat-completions compatible backend
// (OpenAI itself, Groq, OpenRouter) to llm.Provider.
package openaicompat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/x1syne/ai-study-agent-sub001/internal/llm"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 4096
)

type Config struct {
	Name      string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

func NewConfig(pc llm.ProviderConfig) (*Config, error) {
	if pc.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	cfg := &Config{
		Name:      pc.Name,
		APIKey:    pc.APIKey,
		Model:     pc.Model,
		BaseURL:   pc.BaseURL,
		MaxTokens: pc.MaxTokens,
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return cfg, nil
}

type Client struct {
	completions *openai.ChatCompletionService
	config      *Config
}

func NewClient(config *Config, httpClient *http.Client) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(opts...)
	return &Client{completions: &client.Chat.Completions, config: config}
}

func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	start := time.Now()

	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(c.config.Model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Temperature:         openai.Float(req.Options.Temperature),
	}
	if req.Options.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.completions.New(ctx, params)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return nil, llm.InvalidResponse(c.config.Name, "No choices returned", nil)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return nil, llm.InvalidResponse(c.config.Name, "Empty response generated", nil)
	}

	return &models.GenerationResponse{
		Content:    content,
		ProviderID: c.config.Name,
		LatencyMs:  int(time.Since(start).Milliseconds()),
	}, nil
}

func (c *Client) classify(ctx context.Context, err error) *llm.ProviderError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &llm.ProviderError{Provider: c.config.Name, Code: llm.ErrCodeTimeout, Message: "Request timed out", Err: err}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.StatusError(c.config.Name, apiErr.StatusCode, err)
	}
	return llm.TransportError(c.config.Name, err)
}

func (c *Client) GetProviderName() string {
	return c.config.Name
}
