package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/x1syne/ai-study-agent-sub001/internal/handlers"
	"github.com/x1syne/ai-study-agent-sub001/internal/middleware"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

// CourseRoutes mounts the course API. limit guards generation only; nil
// disables rate limiting.
func CourseRoutes(router *chi.Mux, courseHandler *handlers.CourseHandler, limit func(http.Handler) http.Handler) {
	router.Route("/api/v1/courses", func(r chi.Router) {
		var chain []func(http.Handler) http.Handler
		if limit != nil {
			chain = append(chain, limit)
		}
		chain = append(chain, middleware.ValidateRequest[*models.GenerateCourseRequest]())
		r.With(chain...).Post("/generate", courseHandler.GenerateHandler)
		r.With(middleware.ValidateRequest[*models.InvalidateCacheRequest]()).Delete("/cache", courseHandler.InvalidateCacheHandler)
	})
}
