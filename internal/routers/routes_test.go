package routers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/handlers"
	"github.com/x1syne/ai-study-agent-sub001/internal/middleware"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
	"github.com/x1syne/ai-study-agent-sub001/internal/ratelimit"
)

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, string, bool) (*models.GenerationResult, error) {
	return &models.GenerationResult{Content: "ok"}, nil
}

func (stubGenerator) Invalidate(context.Context, string, string) ([]string, error) {
	return nil, nil
}

var _ handlers.CourseGenerator = stubGenerator{}

func TestHealthRoutes(t *testing.T) {
	router := chi.NewRouter()
	handler := handlers.NewHealthHandler(nil, nil, "memory", nil)

	HealthRoutes(router, handler)

	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz route not registered correctly, got status %d", rec.Code)
	}
}

func TestCourseRoutesRegistersEndpoints(t *testing.T) {
	router := chi.NewRouter()
	courseHandler := handlers.NewCourseHandler(stubGenerator{}, zap.NewNop())

	CourseRoutes(router, courseHandler, nil)
	MetricsRoutes(router, http.NotFoundHandler())

	paths := map[string]bool{}
	if err := chi.Walk(router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("failed walking routes: %v", err)
	}

	expected := []string{
		"POST /api/v1/courses/generate",
		"DELETE /api/v1/courses/cache",
		"GET /metrics",
	}

	for _, route := range expected {
		if !paths[route] {
			t.Fatalf("expected route %s to be registered, have %v", route, paths)
		}
	}
}

func TestCourseRoutesRateLimitsGenerate(t *testing.T) {
	router := chi.NewRouter()
	courseHandler := handlers.NewCourseHandler(stubGenerator{}, zap.NewNop())
	limiter := ratelimit.NewMemoryLimiter(1, ratelimit.DefaultWindow)

	CourseRoutes(router, courseHandler, middleware.RateLimit(limiter, zap.NewNop()))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/generate", bytes.NewBufferString(`{"query":"graphs"}`))
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}

	// invalidation is not rate limited
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/courses/cache", bytes.NewBufferString(`{"query":"graphs"}`))
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected invalidate to pass, got %d", rec.Code)
	}
}
