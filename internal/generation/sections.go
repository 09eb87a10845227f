package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
	"github.com/x1syne/ai-study-agent-sub001/internal/prompts"
)

// SectionDelimiter separates sections in the assembled document.
const SectionDelimiter = "\n\n---\n\n"

var sectionOptions = models.GenerationOptions{Temperature: 0.7, MaxTokens: 2048}

// the lesson outline, in document order
var sectionOutline = []struct {
	Title   string
	Variant string
}{
	{"Introduction", "introduction"},
	{"Core Concepts", "core_concepts"},
	{"Mechanism", "mechanism"},
	{"Examples", "examples"},
	{"Common Mistakes", "common_mistakes"},
	{"Summary", "summary"},
}

// SectionCount is the fixed number of sections in a lesson.
var SectionCount = len(sectionOutline)

// SectionHook observes the outcome of every section.
type SectionHook func(title string, succeeded bool)

type SectionOrchestrator struct {
	router    Completer
	prompts   prompts.PromptProvider
	logger    *zap.Logger
	onOutcome SectionHook
}

func NewSectionOrchestrator(router Completer, pm prompts.PromptProvider, logger *zap.Logger, hook SectionHook) *SectionOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionOrchestrator{router: router, prompts: pm, logger: logger.Named("sections"), onOutcome: hook}
}

// BuildSectionSpecs derives the fixed outline from an analysis.
func BuildSectionSpecs(pm prompts.PromptProvider, analysis models.TopicAnalysis) []models.SectionSpec {
	data := promptData(analysis)
	specs := make([]models.SectionSpec, 0, len(sectionOutline))
	for _, s := range sectionOutline {
		data.SectionTitle = s.Title
		prompt, err := pm.BuildPrompt(prompts.ModeSections, s.Variant, data)
		if err != nil {
			prompt = fmt.Sprintf("Write the %q section of a lesson on %s for the course %s. Cover: %s.",
				s.Title, analysis.Topic, analysis.CourseName, strings.Join(analysis.KeyTerms, ", "))
		}
		specs = append(specs, models.SectionSpec{Title: s.Title, Prompt: prompt})
	}
	return specs
}

// GenerateSections runs every section concurrently and returns one result
// per spec in outline order. Individual failures become placeholders; the
// only error is a nil analysis.
func (o *SectionOrchestrator) GenerateSections(ctx context.Context, analysis *models.TopicAnalysis) ([]models.SectionResult, error) {
	if analysis == nil {
		return nil, ErrNilAnalysis
	}

	specs := BuildSectionSpecs(o.prompts, *analysis)
	system := o.prompts.SystemPrompt(prompts.ModeSections)
	results := make([]models.SectionResult, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec models.SectionSpec) {
			defer wg.Done()
			results[i] = o.generateOne(ctx, system, spec)
		}(i, spec)
	}
	wg.Wait()

	return results, nil
}

func (o *SectionOrchestrator) generateOne(ctx context.Context, system string, spec models.SectionSpec) (result models.SectionResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Section generation panicked", zap.String("section", spec.Title), zap.Any("panic", r))
			result = failedSection(spec.Title)
		}
		if o.onOutcome != nil {
			o.onOutcome(spec.Title, result.Succeeded)
		}
	}()

	resp, err := o.router.Route(ctx, models.TierHeavy, system, spec.Prompt, sectionOptions)
	if err != nil {
		o.logger.Warn("Section failed, using placeholder", zap.String("section", spec.Title), zap.Error(err))
		return failedSection(spec.Title)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return failedSection(spec.Title)
	}
	if !strings.HasPrefix(content, "#") {
		content = "## " + spec.Title + "\n\n" + content
	}
	return models.SectionResult{Title: spec.Title, Content: content, Succeeded: true, Source: models.SourceAI}
}

// Placeholder is the content of a section that could not be generated.
func Placeholder(title string) string {
	return "## " + title + "\n\n_This section could not be generated right now. Please try again later._"
}

func failedSection(title string) models.SectionResult {
	return models.SectionResult{Title: title, Content: Placeholder(title), Succeeded: false, Source: models.SourceFallback}
}

// AssembleDocument joins section contents in the order given.
func AssembleDocument(results []models.SectionResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, SectionDelimiter)
}

func promptData(a models.TopicAnalysis) prompts.Data {
	return prompts.Data{
		Topic:          a.Topic,
		CourseName:     a.CourseName,
		TopicType:      a.PrimaryNature(),
		Tone:           a.Tone,
		KeyTerms:       a.KeyTerms,
		Prerequisites:  a.Complexity.Prerequisites,
		RelatedTopics:  a.Connections.RelatedTopics,
		Applications:   a.Connections.RealApplications,
		ContentFormats: a.ContentFormats,
		BaseComplexity: a.Complexity.Base,
		Depth:          a.Complexity.Depth,
	}
}
