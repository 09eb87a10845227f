package gemini

import "github.com/x1syne/ai-study-agent-sub001/internal/llm"

// Register Gemini provider on package import
func init() {
	llm.RegisterProvider("gemini", func(pc llm.ProviderConfig) (llm.Provider, error) {
		config, err := NewConfig(pc)
		if err != nil {
			return nil, err
		}
		return NewClient(config, pc.HTTPClient)
	})
}
