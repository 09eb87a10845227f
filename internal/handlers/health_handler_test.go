package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"text/template"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

// ============================================================================
// Test Helpers
// ============================================================================

func readyRouter() *mockRouter {
	return &mockRouter{
		ready: true,
		chains: map[models.Tier][]string{
			models.TierFast:  {"groq", "gemini"},
			models.TierHeavy: {"gemini-pro"},
		},
	}
}

func decodeReadinessResponse(t *testing.T, rec *httptest.ResponseRecorder) ReadinessResponse {
	t.Helper()
	var response ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return response
}

// ============================================================================
// ReadyzHandler Tests
// ============================================================================

func TestReadyzHandler_AllHealthy(t *testing.T) {
	handler := NewHealthHandler(readyRouter(), &mockPromptManager{}, "memory", nil)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	response := decodeReadinessResponse(t, rec)

	if response.Status != "ready" {
		t.Errorf("expected status 'ready', got '%s'", response.Status)
	}
	if response.Service != "coursegen" {
		t.Errorf("expected service 'coursegen', got '%s'", response.Service)
	}

	for _, checkName := range []string{"router", "prompt_manager", "cache", "tier_fast", "tier_heavy"} {
		check, exists := response.Checks[checkName]
		if !exists {
			t.Errorf("missing check: %s", checkName)
			continue
		}
		if check.Status != "ok" {
			t.Errorf("check %s: expected status 'ok', got '%s'", checkName, check.Status)
		}
	}

	if got := response.Checks["tier_fast"].Chain; len(got) != 2 || got[0] != "groq" {
		t.Errorf("expected fast chain [groq gemini], got %v", got)
	}
	if msg := response.Checks["tier_vision"].Message; msg != "no providers configured" {
		t.Errorf("expected empty vision tier to be reported, got %q", msg)
	}
	if msg := response.Checks["cache"].Message; msg != "memory" {
		t.Errorf("expected cache backend in message, got %q", msg)
	}
}

func TestReadyzHandler_DependenciesFail(t *testing.T) {
	handler := NewHealthHandler(nil, nil, "redis", func(context.Context) error {
		return errors.New("connection refused")
	})

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	response := decodeReadinessResponse(t, rec)

	if response.Status != "not_ready" {
		t.Errorf("expected status 'not_ready', got '%s'", response.Status)
	}

	for _, checkName := range []string{"router", "prompt_manager", "cache"} {
		check, exists := response.Checks[checkName]
		if !exists {
			t.Errorf("missing check: %s", checkName)
			continue
		}
		if check.Status != "failed" {
			t.Errorf("check %s: expected status 'failed', got '%s'", checkName, check.Status)
		}
		if check.Message == "" {
			t.Errorf("check %s: expected error message, got empty string", checkName)
		}
	}
}

func TestReadyzHandler_RouterNotReady(t *testing.T) {
	router := &mockRouter{ready: false, chains: map[models.Tier][]string{models.TierFast: {"groq"}}}
	handler := NewHealthHandler(router, &mockPromptManager{}, "memory", nil)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	response := decodeReadinessResponse(t, rec)
	if response.Checks["router"].Status != "failed" {
		t.Errorf("expected router check to fail, got %+v", response.Checks["router"])
	}
}

func TestReadyzHandler_NoTemplatesLoaded(t *testing.T) {
	promptMgr := &mockPromptManager{
		getTemplatesFn: func() map[string]map[string]*template.Template {
			return map[string]map[string]*template.Template{}
		},
	}
	handler := NewHealthHandler(readyRouter(), promptMgr, "memory", nil)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()

	handler.ReadyzHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	response := decodeReadinessResponse(t, rec)

	pmCheck, exists := response.Checks["prompt_manager"]
	if !exists {
		t.Fatal("prompt_manager check missing from response")
	}
	if pmCheck.Message != "No prompt templates loaded" {
		t.Errorf("expected error message about no templates, got '%s'", pmCheck.Message)
	}
}

// ============================================================================
// HealthzHandler Tests
// ============================================================================

func TestHealthzHandler_AlwaysReturnsOK(t *testing.T) {
	// liveness does not depend on anything
	handler := NewHealthHandler(nil, nil, "", nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.HealthzHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response["status"])
	}
	if response["service"] != "coursegen" {
		t.Errorf("expected service 'coursegen', got '%s'", response["service"])
	}
}
