package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/x1syne/ai-study-agent-sub001/internal/cache"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

const (
	EnvPrefix     = "COURSEGEN"
	EnvConfigFile = "COURSEGEN_CONFIG"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Router    RouterConfig              `mapstructure:"router"`
	Providers map[string]ProviderConfig `mapstructure:"providers" validate:"dive"`
	Cache     CacheConfig               `mapstructure:"cache"`
	Redis     RedisConfig               `mapstructure:"redis"`
	RateLimit RateLimitConfig           `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lt=65536"`
	Env             string        `mapstructure:"env" validate:"oneof=development production test"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

// RouterConfig lists, per tier, the provider names tried in order.
type RouterConfig struct {
	CallTimeout time.Duration       `mapstructure:"call_timeout" validate:"gt=0"`
	Chains      map[string][]string `mapstructure:"chains"`
}

type ProviderConfig struct {
	Type      string `mapstructure:"type" validate:"required"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"gte=0"`
}

type CacheConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory sqlite postgres redis"`
	DSN             string        `mapstructure:"dsn"`
	AnalysisTTL     time.Duration `mapstructure:"analysis_ttl" validate:"gt=0"`
	TasksTTL        time.Duration `mapstructure:"tasks_ttl" validate:"gt=0"`
	LessonTTL       time.Duration `mapstructure:"lesson_ttl" validate:"gt=0"`
	MinLessonLength int           `mapstructure:"min_lesson_length" validate:"gte=0"`
	PurgeEnabled    bool          `mapstructure:"purge_enabled"`
	PurgeSchedule   string        `mapstructure:"purge_schedule"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend" validate:"oneof=memory redis"`
	Limit   int           `mapstructure:"limit" validate:"gt=0"`
	Window  time.Duration `mapstructure:"window" validate:"gt=0"`
}

type providerDefault struct {
	name    string
	cfg     ProviderConfig
	envKeys []string
}

var defaultProviders = []providerDefault{
	{"gemini", ProviderConfig{Type: "gemini", Model: "gemini-2.5-flash"}, []string{"GEMINI_API_KEY"}},
	{"gemini-pro", ProviderConfig{Type: "gemini", Model: "gemini-2.5-pro"}, []string{"GEMINI_API_KEY"}},
	{"openai", ProviderConfig{Type: "openai", Model: "gpt-4o-mini"}, []string{"OPENAI_API_KEY"}},
	{"anthropic", ProviderConfig{Type: "anthropic", Model: "claude-3-5-haiku-latest"}, []string{"ANTHROPIC_API_KEY"}},
	{"groq", ProviderConfig{Type: "openai", Model: "llama-3.3-70b-versatile", BaseURL: "https://api.groq.com/openai/v1"}, []string{"GROQ_API_KEY"}},
}

var defaultChains = map[string][]string{
	string(models.TierFast):   {"groq", "gemini", "openai"},
	string(models.TierHeavy):  {"gemini-pro", "anthropic", "openai"},
	string(models.TierChat):   {"groq", "gemini"},
	string(models.TierVision): {"gemini", "openai"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 150*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.trust_proxy_headers", false)

	v.SetDefault("router.call_timeout", 15*time.Second)
	for tier, chain := range defaultChains {
		v.SetDefault("router.chains."+tier, chain)
	}

	for _, p := range defaultProviders {
		prefix := "providers." + p.name + "."
		v.SetDefault(prefix+"type", p.cfg.Type)
		v.SetDefault(prefix+"model", p.cfg.Model)
		v.SetDefault(prefix+"base_url", p.cfg.BaseURL)
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"max_tokens", 0)
	}

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.dsn", "")
	v.SetDefault("cache.analysis_ttl", 24*time.Hour)
	v.SetDefault("cache.tasks_ttl", 7*24*time.Hour)
	v.SetDefault("cache.lesson_ttl", 7*24*time.Hour)
	v.SetDefault("cache.min_lesson_length", 1000)
	v.SetDefault("cache.purge_enabled", true)
	v.SetDefault("cache.purge_schedule", "@every 10m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.window", time.Hour)
}

// bindProviderKeys lets the conventional vendor env names fill api keys.
func bindProviderKeys(v *viper.Viper) error {
	replacer := strings.NewReplacer("-", "_", ".", "_")
	for _, p := range defaultProviders {
		key := "providers." + p.name + ".api_key"
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))}, p.envKeys...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// LoadConfig reads defaults, then the optional YAML file, then COURSEGEN_*
// environment variables. configFile overrides COURSEGEN_CONFIG.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(EnvConfigFile)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("coursegen")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := bindProviderKeys(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		// only the implicit ./coursegen.yaml may be absent
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for tier, chain := range c.Router.Chains {
		if _, err := models.ParseTier(tier); err != nil {
			return fmt.Errorf("invalid configuration: router.chains: %w", err)
		}
		for _, name := range chain {
			if _, ok := c.Providers[name]; !ok {
				return fmt.Errorf("invalid configuration: router.chains.%s references unknown provider %q", tier, name)
			}
		}
	}

	switch c.Cache.Backend {
	case "sqlite", "postgres":
		if c.Cache.DSN == "" {
			return fmt.Errorf("invalid configuration: cache.dsn is required for the %s backend", c.Cache.Backend)
		}
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("invalid configuration: redis.addr is required for the redis cache backend")
		}
	}
	if c.RateLimit.Enabled && c.RateLimit.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("invalid configuration: redis.addr is required for the redis rate limiter")
	}
	return nil
}

func (c CacheConfig) TTLs() cache.TTLs {
	return cache.TTLs{Analysis: c.AnalysisTTL, Tasks: c.TasksTTL, Lesson: c.LessonTTL}
}
