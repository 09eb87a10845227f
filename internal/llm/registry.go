package llm

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// ProviderConfig describes one configured provider instance. Name is the
// identifier used in fallback chains; Type selects the registered factory.
type ProviderConfig struct {
	Name       string
	Type       string
	Model      string
	BaseURL    string
	APIKey     string
	MaxTokens  int
	HTTPClient *http.Client
}

// defines a function that creates a new provider instance
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// global registry of available provider types
var (
	providersMu sync.RWMutex
	providers   = make(map[string]ProviderFactory)
)

// registers a provider factory with the given type name
func RegisterProvider(kind string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[kind] = factory
}

// creates a new provider instance from its configuration
func NewProvider(cfg ProviderConfig) (Provider, error) {
	providersMu.RLock()
	factory, exists := providers[cfg.Type]
	providersMu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Type)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Type
	}
	return factory(cfg)
}

// RegisteredTypes lists the provider types linked into the binary.
func RegisteredTypes() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	out := make([]string, 0, len(providers))
	for k := range providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
