package models

// GenerationOptions tunes a single provider call.
type GenerationOptions struct {
	JSON        bool    `json:"json"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// GenerationRequest is built once per provider call and never modified.
type GenerationRequest struct {
	Tier         Tier              `json:"tier"`
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}

// GenerationResponse is produced by exactly one adapter invocation.
// ProviderID records which provider ultimately answered.
type GenerationResponse struct {
	Content    string `json:"content"`
	ProviderID string `json:"provider_id"`
	LatencyMs  int    `json:"latency_ms"`
}
