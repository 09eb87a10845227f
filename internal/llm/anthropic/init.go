package anthropic

import "github.com/x1syne/ai-study-agent-sub001/internal/llm"

// Register Anthropic provider on package import
func init() {
	llm.RegisterProvider("anthropic", func(pc llm.ProviderConfig) (llm.Provider, error) {
		config, err := NewConfig(pc)
		if err != nil {
			return nil, err
		}
		return NewClient(config, pc.HTTPClient), nil
	})
}
