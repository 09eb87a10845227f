package handlers

import (
	"context"
	"text/template"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

type mockGenerator struct {
	generateFn   func(ctx context.Context, topic, courseName string, useCache bool) (*models.GenerationResult, error)
	invalidateFn func(ctx context.Context, topic, courseName string) ([]string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, topic, courseName string, useCache bool) (*models.GenerationResult, error) {
	if m.generateFn == nil {
		return &models.GenerationResult{}, nil
	}
	return m.generateFn(ctx, topic, courseName, useCache)
}

func (m *mockGenerator) Invalidate(ctx context.Context, topic, courseName string) ([]string, error) {
	if m.invalidateFn == nil {
		return nil, nil
	}
	return m.invalidateFn(ctx, topic, courseName)
}

type mockRouter struct {
	ready  bool
	chains map[models.Tier][]string
}

func (m *mockRouter) Ready() bool { return m.ready }

func (m *mockRouter) Chain(tier models.Tier) []string { return m.chains[tier] }

type mockPromptManager struct {
	getTemplatesFn func() map[string]map[string]*template.Template
}

func (m *mockPromptManager) GetTemplates() map[string]map[string]*template.Template {
	if m.getTemplatesFn == nil {
		return map[string]map[string]*template.Template{
			"analysis": {
				"default": template.Must(template.New("test").Parse("test")),
			},
		}
	}
	return m.getTemplatesFn()
}
