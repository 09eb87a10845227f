package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/cache"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
	"github.com/x1syne/ai-study-agent-sub001/internal/prompts"
	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

var analysisOptions = models.GenerationOptions{JSON: true, Temperature: 0.3, MaxTokens: 1500}

const (
	minKeyTerms = 5
	maxKeyTerms = 7
)

type Analyzer struct {
	router  Completer
	prompts prompts.PromptProvider
	cache   cache.Store
	ttl     time.Duration
	logger  *zap.Logger
}

func NewAnalyzer(router Completer, pm prompts.PromptProvider, store cache.Store, ttl time.Duration, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{router: router, prompts: pm, cache: store, ttl: ttl, logger: logger.Named("analyzer")}
}

// Analyze classifies a topic. A failed or malformed model answer yields the
// default analysis; only an empty topic is an error.
func (a *Analyzer) Analyze(ctx context.Context, topic, courseName string) (models.TopicAnalysis, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return models.TopicAnalysis{}, ErrEmptyTopic
	}
	courseName = courseOrDefault(courseName)

	key := cache.Key(cache.KindAnalysis, topic, courseName)
	var cached models.TopicAnalysis
	if cache.GetJSON(ctx, a.cache, key, &cached) {
		return cached, nil
	}

	analysis, err := a.generate(ctx, topic, courseName)
	if err != nil {
		a.logger.Warn("Falling back to default analysis", zap.String("topic", topic), zap.Error(err))
		return DefaultAnalysis(topic, courseName), nil
	}

	if err := cache.PutJSON(ctx, a.cache, key, analysis, a.ttl); err != nil {
		a.logger.Warn("Failed to cache analysis", zap.String("topic", topic), zap.Error(err))
	}
	return analysis, nil
}

func (a *Analyzer) generate(ctx context.Context, topic, courseName string) (models.TopicAnalysis, error) {
	data := prompts.Data{Topic: topic, CourseName: courseName}
	user, err := a.prompts.BuildPrompt(prompts.ModeAnalysis, prompts.DefaultVariant, data)
	if err != nil {
		return models.TopicAnalysis{}, err
	}

	resp, err := a.router.Route(ctx, models.TierFast, a.prompts.SystemPrompt(prompts.ModeAnalysis), user, analysisOptions)
	if err != nil {
		return models.TopicAnalysis{}, err
	}
	return ParseAnalysis(resp.Content, topic, courseName)
}

// maxRepairedFields bounds how many top-level fields of a model answer may be
// invalid before the answer as a whole is rejected.
const maxRepairedFields = 3

// ParseAnalysis decodes a model answer and validates it strictly. Fields are
// decoded one at a time, so a mistyped field is treated as invalid rather than
// failing the whole answer. An answer with a few invalid fields is repaired
// field by field from the default analysis; one with more is rejected with
// ErrValidationFailed.
func ParseAnalysis(content, topic, courseName string) (models.TopicAnalysis, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(utils.ExtractJSON(content)), &fields); err != nil {
		return models.TopicAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	parsed := decodeAnalysis(fields)
	parsed.Topic = topic
	parsed.CourseName = courseOrDefault(courseName)

	if err := validate.Struct(parsed); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.TopicAnalysis{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		if failed := failedFields(verrs); len(failed) > maxRepairedFields {
			return models.TopicAnalysis{}, fmt.Errorf("%w: invalid fields %s", ErrValidationFailed, strings.Join(failed, ", "))
		}
	}

	analysis := normalizeAnalysis(parsed, DefaultAnalysis(topic, courseName))
	if err := validate.Struct(analysis); err != nil {
		return models.TopicAnalysis{}, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return analysis, nil
}

// decodeAnalysis coerces each known field independently. A field that cannot
// be coerced is left at its zero value and fails validation on its own.
func decodeAnalysis(fields map[string]any) models.TopicAnalysis {
	var out models.TopicAnalysis
	out.Nature = termList(fields["nature"])
	out.ContentFormats = termList(fields["contentFormats"])
	out.KeyTerms = termList(fields["keyTerms"])
	out.Tone = stringField(fields, "tone")
	out.EstimatedTimeMinutes, _ = intValue(fields["estimatedTimeMinutes"])

	if complexity, ok := fields["complexity"].(map[string]any); ok {
		out.Complexity.Base, _ = intValue(complexity["base"])
		out.Complexity.Depth, _ = intValue(complexity["depth"])
		out.Complexity.Prerequisites = termList(complexity["prerequisites"])
	}
	if connections, ok := fields["connections"].(map[string]any); ok {
		out.Connections.RelatedTopics = termList(connections["relatedTopics"])
		out.Connections.RealApplications = termList(connections["realApplications"])
		out.Connections.Industries = termList(connections["industries"])
	}
	return out
}

// intValue accepts a JSON number or a numeric string, rounding fractions.
func intValue(v any) (int, bool) {
	n, ok := numberValue(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(n)), true
}

// termList accepts an array or a comma separated string.
func termList(v any) []string {
	if s, ok := v.(string); ok {
		return cleanList(strings.Split(s, ","))
	}
	return stringList(v)
}

// failedFields returns the distinct top-level fields named in verrs.
func failedFields(verrs validator.ValidationErrors) []string {
	var out []string
	seen := make(map[string]bool)
	for _, fe := range verrs {
		parts := strings.Split(fe.StructNamespace(), ".")
		field := parts[len(parts)-1]
		if len(parts) > 1 {
			field = parts[1]
		}
		// dive errors look like KeyTerms[3]
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		if !seen[field] {
			seen[field] = true
			out = append(out, field)
		}
	}
	return out
}

// normalizeAnalysis is pure: it keeps every valid field of in and takes the
// rest from def.
func normalizeAnalysis(in, def models.TopicAnalysis) models.TopicAnalysis {
	out := def
	out.Source = models.SourceAI

	if n := filterEnum(in.Nature, models.ValidNatures); len(n) > 0 {
		out.Nature = n
	}
	if f := filterEnum(in.ContentFormats, models.ValidContentFormats); len(f) > 0 {
		out.ContentFormats = f
	}
	if tone := strings.ToLower(strings.TrimSpace(in.Tone)); models.ValidTones[tone] {
		out.Tone = tone
	}

	if in.Complexity.Base >= 1 && in.Complexity.Base <= 10 {
		out.Complexity.Base = in.Complexity.Base
	}
	if in.Complexity.Depth >= 1 && in.Complexity.Depth <= 10 {
		out.Complexity.Depth = in.Complexity.Depth
	}
	out.Complexity.Prerequisites = cleanList(in.Complexity.Prerequisites)

	out.Connections = models.Connections{
		RelatedTopics:    cleanList(in.Connections.RelatedTopics),
		RealApplications: cleanList(in.Connections.RealApplications),
		Industries:       cleanList(in.Connections.Industries),
	}

	out.KeyTerms = mergeKeyTerms(cleanList(in.KeyTerms), def.KeyTerms)

	if in.EstimatedTimeMinutes > 0 {
		out.EstimatedTimeMinutes = in.EstimatedTimeMinutes
	}
	return out
}

// DefaultAnalysis is derived from the topic string alone.
func DefaultAnalysis(topic, courseName string) models.TopicAnalysis {
	topic = strings.TrimSpace(topic)
	return models.TopicAnalysis{
		Topic:      topic,
		CourseName: courseOrDefault(courseName),
		Nature:     []string{"theoretical"},
		Complexity: models.Complexity{
			Base:          5,
			Depth:         5,
			Prerequisites: []string{},
		},
		ContentFormats: []string{"text", "example"},
		Connections: models.Connections{
			RelatedTopics:    []string{},
			RealApplications: []string{},
			Industries:       []string{},
		},
		KeyTerms: []string{
			topic,
			topic + " fundamentals",
			topic + " examples",
			topic + " applications",
			topic + " best practices",
		},
		Tone:                 "conversational",
		EstimatedTimeMinutes: 30,
		Source:               models.SourceFallback,
	}
}

func courseOrDefault(courseName string) string {
	if c := strings.TrimSpace(courseName); c != "" {
		return c
	}
	return models.DefaultCourseName
}

func filterEnum(values []string, allowed map[string]bool) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if allowed[v] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// mergeKeyTerms keeps up to seven model terms and pads to five from defaults.
func mergeKeyTerms(terms, defaults []string) []string {
	out := make([]string, 0, maxKeyTerms)
	seen := make(map[string]bool)
	add := func(t string) {
		k := utils.NormalizeText(t)
		if len(out) < maxKeyTerms && !seen[k] {
			seen[k] = true
			out = append(out, t)
		}
	}
	for _, t := range terms {
		add(t)
	}
	for _, t := range defaults {
		if len(out) >= minKeyTerms {
			break
		}
		add(t)
	}
	return out
}
