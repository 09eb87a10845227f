// Package bootstrap builds the course generation pipeline from configuration.
// The HTTP server and the CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/x1syne/ai-study-agent-sub001/internal/cache"
	"github.com/x1syne/ai-study-agent-sub001/internal/config"
	"github.com/x1syne/ai-study-agent-sub001/internal/generation"
	"github.com/x1syne/ai-study-agent-sub001/internal/llm"
	_ "github.com/x1syne/ai-study-agent-sub001/internal/llm/anthropic"
	_ "github.com/x1syne/ai-study-agent-sub001/internal/llm/gemini"
	_ "github.com/x1syne/ai-study-agent-sub001/internal/llm/openaicompat"
	"github.com/x1syne/ai-study-agent-sub001/internal/metrics"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
	"github.com/x1syne/ai-study-agent-sub001/internal/prompts"
	"github.com/x1syne/ai-study-agent-sub001/internal/ratelimit"
)

// App is the wired pipeline plus the resources it owns.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Router    *llm.Router
	Prompts   *prompts.PromptManager
	Store     cache.Store
	Purger    cache.Purger
	Limiter   ratelimit.Limiter
	Assembler *generation.CourseAssembler

	// CacheCheck pings the durable cache backend; nil for memory.
	CacheCheck func(ctx context.Context) error

	redis   *redis.Client
	closers []func() error
}

// Option adjusts how New wires the pipeline.
type Option func(*options)

type options struct {
	providers map[string]llm.Provider
	metrics   *metrics.Metrics
}

// WithProviders replaces provider construction with fixed instances keyed by
// provider name.
func WithProviders(providers map[string]llm.Provider) Option {
	return func(o *options) { o.providers = providers }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New(nil)
	}

	app := &App{Config: cfg, Logger: logger, Metrics: o.metrics}

	pm, err := prompts.NewPromptManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt manager: %w", err)
	}
	app.Prompts = pm

	router, err := app.buildRouter(o.providers)
	if err != nil {
		return nil, err
	}
	app.Router = router

	store, err := app.buildStore()
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = cache.Observe(store, app.Metrics.CacheHook())
	if purger, ok := store.(cache.Purger); ok {
		app.Purger = purger
	}

	limiter, err := app.buildLimiter()
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Limiter = limiter

	ttls := cfg.Cache.TTLs()
	analyzer := generation.NewAnalyzer(router, pm, app.Store, ttls.Analysis, logger)
	sections := generation.NewSectionOrchestrator(router, pm, logger, app.Metrics.SectionHook())
	tasks := generation.NewTaskGenerator(router, pm, app.Store, ttls.Tasks, logger)
	app.Assembler = generation.NewCourseAssembler(analyzer, sections, tasks, app.Store, generation.AssemblerConfig{
		LessonTTL:       ttls.Lesson,
		MinLessonLength: cfg.Cache.MinLessonLength,
	}, logger)

	return app, nil
}

// buildRouter instantiates each provider named in a chain once. Providers
// without an API key are skipped.
func (a *App) buildRouter(fixed map[string]llm.Provider) (*llm.Router, error) {
	built := make(map[string]llm.Provider)
	skipped := make(map[string]bool)

	resolve := func(name string) (llm.Provider, error) {
		if p, ok := built[name]; ok {
			return p, nil
		}
		if skipped[name] {
			return nil, nil
		}
		if fixed != nil {
			p, ok := fixed[name]
			if !ok {
				skipped[name] = true
				return nil, nil
			}
			built[name] = p
			return p, nil
		}

		pc := a.Config.Providers[name]
		if pc.APIKey == "" {
			a.Logger.Warn("Provider has no API key, leaving it out of the fallback chains", zap.String("provider", name))
			skipped[name] = true
			return nil, nil
		}
		p, err := llm.NewProvider(llm.ProviderConfig{
			Name:      name,
			Type:      pc.Type,
			Model:     pc.Model,
			BaseURL:   pc.BaseURL,
			APIKey:    pc.APIKey,
			MaxTokens: pc.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", name, err)
		}
		built[name] = p
		return p, nil
	}

	tiers := make([]string, 0, len(a.Config.Router.Chains))
	for tier := range a.Config.Router.Chains {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)

	chains := make(map[models.Tier][]llm.Provider, len(tiers))
	for _, raw := range tiers {
		tier, err := models.ParseTier(raw)
		if err != nil {
			return nil, err
		}
		for _, name := range a.Config.Router.Chains[raw] {
			p, err := resolve(name)
			if err != nil {
				return nil, err
			}
			if p != nil {
				chains[tier] = append(chains[tier], p)
			}
		}
		a.Logger.Info("Fallback chain configured",
			zap.String("tier", raw),
			zap.Int("providers", len(chains[tier])))
	}

	router := llm.NewRouter(chains, a.Config.Router.CallTimeout, a.Logger, llm.WithAttemptHook(a.Metrics.AttemptHook()))
	if !router.Ready() {
		a.Logger.Warn("Fast or heavy tier has no live provider; generation will fall back to defaults")
	}
	return router, nil
}

func (a *App) buildStore() (cache.Store, error) {
	switch a.Config.Cache.Backend {
	case "memory":
		return cache.NewMemoryStore(), nil
	case "sqlite", "postgres":
		db, err := a.openDatabase()
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		a.CacheCheck = sqlDB.PingContext
		return cache.NewGormStore(db, a.Logger)
	case "redis":
		client := a.redisClient()
		a.CacheCheck = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return cache.NewRedisStore(client, a.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", a.Config.Cache.Backend)
	}
}

func (a *App) openDatabase() (*gorm.DB, error) {
	var dialector gorm.Dialector
	if a.Config.Cache.Backend == "postgres" {
		dialector = postgres.Open(a.Config.Cache.DSN)
	} else {
		dialector = sqlite.Open(a.Config.Cache.DSN)
	}

	level := gormlogger.Warn
	if a.Config.Server.Env == "production" {
		level = gormlogger.Error
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (a *App) buildLimiter() (ratelimit.Limiter, error) {
	rl := a.Config.RateLimit
	if !rl.Enabled {
		return nil, nil
	}
	switch rl.Backend {
	case "memory":
		return ratelimit.NewMemoryLimiter(rl.Limit, rl.Window), nil
	case "redis":
		return ratelimit.NewRedisLimiter(a.redisClient(), rl.Limit, rl.Window), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", rl.Backend)
	}
}

// redisClient is shared between the cache and the rate limiter.
func (a *App) redisClient() *redis.Client {
	if a.redis == nil {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		a.closers = append(a.closers, a.redis.Close)
	}
	return a.redis
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
