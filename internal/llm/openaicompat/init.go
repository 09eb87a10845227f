package openaicompat

import "github.com/x1syne/ai-study-agent-sub001/internal/llm"

// Register the OpenAI-compatible provider on package import
func init() {
	llm.RegisterProvider("openai", func(pc llm.ProviderConfig) (llm.Provider, error) {
		config, err := NewConfig(pc)
		if err != nil {
			return nil, err
		}
		return NewClient(config, pc.HTTPClient), nil
	})
}
