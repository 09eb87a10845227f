package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/x1syne/ai-study-agent-sub001/internal/llm"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

// Client represents a Gemini LLM client
type Client struct {
	client *genai.Client
	config *Config
}

func NewClient(config *Config, httpClient *http.Client) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if httpClient != nil {
		cc.HTTPClient = httpClient
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL, APIVersion: DefaultAPIVersion}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: config.Name,
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// Generate issues one generateContent call.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	startTime := time.Now()
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.Model,
		genai.Text(req.UserPrompt),
		c.contentConfig(req),
	)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	if result == nil {
		return nil, llm.InvalidResponse(c.config.Name, "No response generated", nil)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return nil, llm.InvalidResponse(c.config.Name, "Empty response generated", nil)
	}

	return &models.GenerationResponse{
		Content:    text,
		ProviderID: c.config.Name,
		LatencyMs:  int(time.Since(startTime).Milliseconds()),
	}, nil
}

func (c *Client) contentConfig(req models.GenerationRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if req.Options.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func (c *Client) classify(ctx context.Context, err error) *llm.ProviderError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &llm.ProviderError{Provider: c.config.Name, Code: llm.ErrCodeTimeout, Message: "Request timed out", Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.StatusError(c.config.Name, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return llm.StatusError(c.config.Name, apiErrPtr.Code, err)
	}

	if isRateLimitError(err) {
		return &llm.ProviderError{Provider: c.config.Name, Code: llm.ErrCodeRateLimit, Message: "Rate limit exceeded", Err: err}
	}
	return llm.TransportError(c.config.Name, err)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(msg), "quota")
}

func (c *Client) GetProviderName() string {
	return c.config.Name
}
