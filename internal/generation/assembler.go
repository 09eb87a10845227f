package generation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/x1syne/ai-study-agent-sub001/internal/cache"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

// DefaultMinLessonLength is the shortest assembled document worth caching.
const DefaultMinLessonLength = 1000

type AssemblerConfig struct {
	LessonTTL       time.Duration
	MinLessonLength int
}

// CourseAssembler is the only writer of lesson entries.
type CourseAssembler struct {
	analyzer *Analyzer
	sections *SectionOrchestrator
	tasks    *TaskGenerator
	cache    cache.Store
	cfg      AssemblerConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewCourseAssembler(analyzer *Analyzer, sections *SectionOrchestrator, tasks *TaskGenerator, store cache.Store, cfg AssemblerConfig, logger *zap.Logger) *CourseAssembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinLessonLength <= 0 {
		cfg.MinLessonLength = DefaultMinLessonLength
	}
	if cfg.LessonTTL <= 0 {
		cfg.LessonTTL = cache.DefaultTTLs().Lesson
	}
	return &CourseAssembler{
		analyzer: analyzer,
		sections: sections,
		tasks:    tasks,
		cache:    store,
		cfg:      cfg,
		logger:   logger.Named("assembler"),
		now:      time.Now,
	}
}

// Generate produces a full lesson. useCache=false skips the lesson cache read
// only; analysis and task caches are still consulted and every cache is
// still written.
func (c *CourseAssembler) Generate(ctx context.Context, topic, courseName string, useCache bool) (*models.GenerationResult, error) {
	start := c.now()
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	courseName = courseOrDefault(courseName)
	lessonKey := cache.Key(cache.KindLesson, topic, courseName)

	if useCache {
		if result, ok := c.fromCache(ctx, lessonKey, topic, courseName); ok {
			result.Metadata.TotalTimeMs = c.now().Sub(start).Milliseconds()
			c.logger.Info("Lesson served from cache", zap.String("topic", topic), zap.String("course", courseName))
			return result, nil
		}
	}

	// sections and tasks both depend on the analysis
	analysis, err := c.analyzer.Analyze(ctx, topic, courseName)
	if err != nil {
		return nil, fmt.Errorf("analyze %q: %w", topic, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate %q: %w", topic, err)
	}

	var (
		sections []models.SectionResult
		taskSet  TaskSet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sections, err = c.sections.GenerateSections(gctx, &analysis)
		return err
	})
	g.Go(func() error {
		taskSet = c.tasks.GenerateTaskSet(gctx, analysis)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate %q: %w", topic, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate %q: %w", topic, err)
	}

	content := AssembleDocument(sections)
	result := &models.GenerationResult{
		Content:  content,
		Analysis: analysis,
		Tasks:    taskSet.Tasks,
		Metadata: models.ResultMetadata{
			GeneratedAt: start.UTC(),
			FromCache:   false,
			Provenance:  provenance(analysis, taskSet, sections),
		},
	}
	result.Metadata.TotalTimeMs = c.now().Sub(start).Milliseconds()

	if n := utf8.RuneCountInString(content); n >= c.cfg.MinLessonLength {
		if err := cache.PutJSON(ctx, c.cache, lessonKey, result, c.cfg.LessonTTL); err != nil {
			c.logger.Warn("Failed to cache lesson", zap.String("topic", topic), zap.Error(err))
		}
	} else {
		c.logger.Info("Lesson too short to cache", zap.String("topic", topic), zap.Int("length", n))
	}

	c.logger.Info("Lesson generated",
		zap.String("topic", topic),
		zap.String("course", courseName),
		zap.Int("sections_failed", countFailed(sections)),
		zap.String("analysis_source", analysis.Source),
		zap.String("tasks_source", taskSet.Source),
		zap.Int64("total_ms", result.Metadata.TotalTimeMs))
	return result, nil
}

// fromCache loads a lesson entry and refreshes its analysis and tasks from
// their own entries when those are warm.
func (c *CourseAssembler) fromCache(ctx context.Context, lessonKey, topic, courseName string) (*models.GenerationResult, bool) {
	var result models.GenerationResult
	if !cache.GetJSON(ctx, c.cache, lessonKey, &result) {
		return nil, false
	}

	var analysis models.TopicAnalysis
	if cache.GetJSON(ctx, c.cache, cache.Key(cache.KindAnalysis, topic, courseName), &analysis) {
		result.Analysis = analysis
		result.Metadata.Provenance.Analysis = analysis.Source
	}
	var tasks []models.Task
	if cache.GetJSON(ctx, c.cache, cache.Key(cache.KindTasks, topic, courseName), &tasks) && len(tasks) > 0 {
		result.Tasks = tasks
		result.Metadata.Provenance.Tasks = models.SourceAI
	}

	result.Metadata.FromCache = true
	return &result, true
}

// Invalidate drops every cache entry for a topic and course.
func (c *CourseAssembler) Invalidate(ctx context.Context, topic, courseName string) ([]string, error) {
	keys := cache.Keys(strings.TrimSpace(topic), courseOrDefault(courseName))
	for _, key := range keys {
		if err := c.cache.Invalidate(ctx, key); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func provenance(analysis models.TopicAnalysis, tasks TaskSet, sections []models.SectionResult) models.Provenance {
	p := models.Provenance{
		Analysis: analysis.Source,
		Tasks:    tasks.Source,
		Sections: make([]models.SectionProvenance, len(sections)),
	}
	if p.Analysis == "" {
		p.Analysis = models.SourceAI
	}
	for i, s := range sections {
		p.Sections[i] = models.SectionProvenance{Title: s.Title, Source: s.Source}
	}
	return p
}

func countFailed(sections []models.SectionResult) int {
	n := 0
	for _, s := range sections {
		if !s.Succeeded {
			n++
		}
	}
	return n
}
