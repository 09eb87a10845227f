package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/x1syne/ai-study-agent-sub001/internal/llm"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 4096
)

// The Messages API has no JSON response mode; the instruction is appended
// to the system prompt instead.
const jsonInstruction = "Respond with a single valid JSON value and nothing else. Do not wrap it in code fences."

type Config struct {
	Name      string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

func NewConfig(pc llm.ProviderConfig) (*Config, error) {
	if pc.APIKey == "" {
		return nil, errors.New("anthropic: api key is required (ANTHROPIC_API_KEY)")
	}
	cfg := &Config{
		Name:      pc.Name,
		APIKey:    pc.APIKey,
		Model:     pc.Model,
		BaseURL:   pc.BaseURL,
		MaxTokens: pc.MaxTokens,
	}
	if cfg.Name == "" {
		cfg.Name = "anthropic"
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
	messages *anthropicsdk.MessageService
	config   *Config
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

	client := anthropicsdk.NewClient(opts...)
	return &Client{messages: &client.Messages, config: config}
}

func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	start := time.Now()

	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	system := strings.TrimSpace(req.SystemPrompt)
	if req.Options.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{{
			Role:    anthropicsdk.MessageParamRoleUser,
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(req.UserPrompt)},
		}},
		Temperature: param.NewOpt(req.Options.Temperature),
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	if msg == nil {
		return nil, llm.InvalidResponse(c.config.Name, "No response generated", nil)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
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
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		// 529 is Anthropic's overloaded status
		return llm.StatusError(c.config.Name, apiErr.StatusCode, err)
	}
	return llm.TransportError(c.config.Name, err)
}

func (c *Client) GetProviderName() string {
	return c.config.Name
}
