package handlers

import (
	"context"
	"net/http"
	"text/template"
	"time"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

const serviceName = "coursegen"

type ReadinessCheck struct {
	Status  string   `json:"status"` // "ok" | "failed"
	Message string   `json:"message,omitempty"`
	Chain   []string `json:"chain,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

// ChainReporter is the part of the tier router readiness looks at.
type ChainReporter interface {
	Ready() bool
	Chain(tier models.Tier) []string
}

type TemplateSource interface {
	GetTemplates() map[string]map[string]*template.Template
}

// CacheCheck pings the cache backend. Nil means the backend needs no ping.
type CacheCheck func(ctx context.Context) error

type HealthHandler struct {
	router       ChainReporter
	templates    TemplateSource
	cacheBackend string
	cacheCheck   CacheCheck
}

func NewHealthHandler(router ChainReporter, templates TemplateSource, cacheBackend string, cacheCheck CacheCheck) *HealthHandler {
	return &HealthHandler{
		router:       router,
		templates:    templates,
		cacheBackend: cacheBackend,
		cacheCheck:   cacheCheck,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	checks := make(map[string]ReadinessCheck)
	allChecksPass := true

	if handler.router == nil {
		checks["router"] = ReadinessCheck{Status: "failed", Message: "Tier router not initialized"}
		allChecksPass = false
	} else {
		for _, tier := range []models.Tier{models.TierFast, models.TierHeavy, models.TierChat, models.TierVision} {
			check := ReadinessCheck{Status: "ok", Chain: handler.router.Chain(tier)}
			if len(check.Chain) == 0 {
				check.Message = "no providers configured"
			}
			checks["tier_"+string(tier)] = check
		}
		if !handler.router.Ready() {
			checks["router"] = ReadinessCheck{Status: "failed", Message: "fast and heavy tiers need at least one provider"}
			allChecksPass = false
		} else {
			checks["router"] = ReadinessCheck{Status: "ok"}
		}
	}

	if handler.templates == nil || len(handler.templates.GetTemplates()) == 0 {
		checks["prompt_manager"] = ReadinessCheck{Status: "failed", Message: "No prompt templates loaded"}
		allChecksPass = false
	} else {
		checks["prompt_manager"] = ReadinessCheck{Status: "ok"}
	}

	cacheCheck := ReadinessCheck{Status: "ok", Message: handler.cacheBackend}
	if handler.cacheCheck != nil {
		ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
		err := handler.cacheCheck(ctx)
		cancel()
		if err != nil {
			cacheCheck = ReadinessCheck{Status: "failed", Message: err.Error()}
			allChecksPass = false
		}
	}
	checks["cache"] = cacheCheck

	response := ReadinessResponse{
		Service: serviceName,
		Checks:  checks,
	}

	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}
