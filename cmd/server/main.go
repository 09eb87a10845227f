package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/bootstrap"
	"github.com/x1syne/ai-study-agent-sub001/internal/config"
	"github.com/x1syne/ai-study-agent-sub001/internal/handlers"
	"github.com/x1syne/ai-study-agent-sub001/internal/jobs"
	coursemw "github.com/x1syne/ai-study-agent-sub001/internal/middleware"
	"github.com/x1syne/ai-study-agent-sub001/internal/routers"
	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

func registerRoutes(router *chi.Mux, app *bootstrap.App) {
	courseHandler := handlers.NewCourseHandler(app.Assembler, app.Logger)
	healthHandler := handlers.NewHealthHandler(app.Router, app.Prompts, app.Config.Cache.Backend, app.CacheCheck)

	var limit func(http.Handler) http.Handler
	if app.Limiter != nil {
		limit = coursemw.RateLimit(app.Limiter, app.Logger)
	}

	routers.HealthRoutes(router, healthHandler)
	routers.MetricsRoutes(router, app.Metrics.Handler())
	routers.CourseRoutes(router, courseHandler, limit)
}

func newRouter(app *bootstrap.App) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID)
	// forwarding headers are client controlled unless a proxy rewrites them
	if app.Config.Server.TrustProxyHeaders {
		router.Use(middleware.RealIP)
	}
	router.Use(
		middleware.Logger,
		middleware.Recoverer,
		app.Metrics.Middleware,
		coursemw.Deadline(app.Config.Server.RequestTimeout),
	)

	registerRoutes(router, app)
	return router
}

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		utils.GetLogger().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := utils.NewLogger(cfg.Server.LogLevel, cfg.Server.Env)
	if err != nil {
		logger = utils.GetLogger()
		logger.Warn("Falling back to default logger", zap.Error(err))
	}
	defer logger.Sync()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize course pipeline", zap.Error(err))
	}
	defer app.Close()

	logger.Info("Configuration loaded",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("router_ready", app.Router.Ready()))

	purgeJob := jobs.NewCachePurgerJob(app.Purger, &jobs.PurgerConfig{
		Schedule: cfg.Cache.PurgeSchedule,
		Enabled:  cfg.Cache.PurgeEnabled,
	}, logger)
	if err := purgeJob.Start(); err != nil {
		logger.Error("Failed to start cache purge job", zap.Error(err))
	}

	serverAddr := ":" + strconv.Itoa(cfg.Server.Port)

	server := &http.Server{
		Addr:         serverAddr,
		Handler:      newRouter(app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Course service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// wait for interrupt signal to gracefully shutdown the server
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Course service shutting down...")

	purgeJob.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("Course service exited")
}
