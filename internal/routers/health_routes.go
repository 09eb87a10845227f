package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/x1syne/ai-study-agent-sub001/internal/handlers"
)

func HealthRoutes(router *chi.Mux, healthHandler *handlers.HealthHandler) {
	router.Get("/healthz", healthHandler.HealthzHandler)
	router.Get("/readyz", healthHandler.ReadyzHandler)
	router.Get("/api/v1/courses/healthz", healthHandler.HealthzHandler)
}

func MetricsRoutes(router *chi.Mux, metricsHandler http.Handler) {
	router.Method(http.MethodGet, "/metrics", metricsHandler)
}
