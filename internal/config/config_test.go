package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from keys set in the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvConfigFile, "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GROQ_API_KEY",
		"COURSEGEN_SERVER_PORT", "COURSEGEN_CACHE_BACKEND", "COURSEGEN_CACHE_DSN",
	} {
		t.Setenv(name, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.False(t, cfg.Server.TrustProxyHeaders, "forwarding headers are ignored unless enabled")
	assert.Equal(t, 15*time.Second, cfg.Router.CallTimeout)
	assert.Equal(t, []string{"groq", "gemini", "openai"}, cfg.Router.Chains["fast"])
	assert.Equal(t, []string{"gemini-pro", "anthropic", "openai"}, cfg.Router.Chains["heavy"])
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.AnalysisTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.LessonTTL)
	assert.Equal(t, 1000, cfg.Cache.MinLessonLength)
	assert.Equal(t, 10, cfg.RateLimit.Limit)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)

	groq := cfg.Providers["groq"]
	assert.Equal(t, "openai", groq.Type)
	assert.Equal(t, "https://api.groq.com/openai/v1", groq.BaseURL)
	assert.Empty(t, groq.APIKey)
}

func TestLoadConfig_VendorKeyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.Providers["gemini"].APIKey)
	assert.Equal(t, "gem-key", cfg.Providers["gemini-pro"].APIKey)
	assert.Equal(t, "groq-key", cfg.Providers["groq"].APIKey)
	assert.Empty(t, cfg.Providers["anthropic"].APIKey)
}

func TestLoadConfig_PrefixedEnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "vendor")
	t.Setenv("COURSEGEN_PROVIDERS_OPENAI_API_KEY", "prefixed")
	t.Setenv("COURSEGEN_SERVER_PORT", "9090")
	t.Setenv("COURSEGEN_RATE_LIMIT_LIMIT", "3")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Providers["openai"].APIKey)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.RateLimit.Limit)
}

func TestLoadConfig_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "coursegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
router:
  chains:
    fast: [local]
    heavy: [local]
providers:
  local:
    type: openai
    model: llama3
    base_url: http://localhost:11434/v1
cache:
  backend: sqlite
  dsn: file:coursegen.db
  lesson_ttl: 48h
`), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"local"}, cfg.Router.Chains["fast"])
	assert.Equal(t, "http://localhost:11434/v1", cfg.Providers["local"].BaseURL)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 48*time.Hour, cfg.Cache.TTLs().Lesson)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTLs().Analysis)
}

func TestLoadConfig_ConfigFileEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 6060\n"), 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := LoadConfig("")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "Port"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "loud" }, "LogLevel"},
		{"bad backend", func(c *Config) { c.Cache.Backend = "memcached" }, "Backend"},
		{"unknown tier", func(c *Config) { c.Router.Chains["turbo"] = []string{"groq"} }, "unsupported tier"},
		{"unknown provider", func(c *Config) { c.Router.Chains["fast"] = []string{"ghost"} }, `unknown provider "ghost"`},
		{"sqlite without dsn", func(c *Config) { c.Cache.Backend = "sqlite" }, "cache.dsn is required"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis"; c.Redis.Addr = "" }, "redis.addr is required"},
		{"zero rate limit", func(c *Config) { c.RateLimit.Limit = 0 }, "Limit"},
		{"bad base url", func(c *Config) {
			p := c.Providers["groq"]
			p.BaseURL = "not a url"
			c.Providers["groq"] = p
		}, "BaseURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := clone(base)
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func clone(c *Config) *Config {
	out := *c
	out.Providers = make(map[string]ProviderConfig, len(c.Providers))
	for k, v := range c.Providers {
		out.Providers[k] = v
	}
	out.Router.Chains = make(map[string][]string, len(c.Router.Chains))
	for k, v := range c.Router.Chains {
		out.Router.Chains[k] = append([]string(nil), v...)
	}
	return &out
}
