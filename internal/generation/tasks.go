package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/cache"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
	"github.com/x1syne/ai-study-agent-sub001/internal/prompts"
	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

const (
	TaskCount   = 10
	easyTasks   = 4
	mediumTasks = 4
	hardTasks   = 2
)

var taskOptions = models.GenerationOptions{JSON: true, Temperature: 0.5, MaxTokens: 4096}

// TaskSet is a task list together with where it came from.
type TaskSet struct {
	Tasks  []models.Task
	Source string
}

type TaskGenerator struct {
	router  Completer
	prompts prompts.PromptProvider
	cache   cache.Store
	ttl     time.Duration
	logger  *zap.Logger
}

func NewTaskGenerator(router Completer, pm prompts.PromptProvider, store cache.Store, ttl time.Duration, logger *zap.Logger) *TaskGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskGenerator{router: router, prompts: pm, cache: store, ttl: ttl, logger: logger.Named("tasks")}
}

// GenerateTasks never fails because of the model; it only rejects an
// analysis without a topic.
func (g *TaskGenerator) GenerateTasks(ctx context.Context, analysis models.TopicAnalysis) ([]models.Task, error) {
	if strings.TrimSpace(analysis.Topic) == "" {
		return nil, ErrEmptyTopic
	}
	return g.GenerateTaskSet(ctx, analysis).Tasks, nil
}

// GenerateTaskSet is GenerateTasks with provenance.
func (g *TaskGenerator) GenerateTaskSet(ctx context.Context, analysis models.TopicAnalysis) TaskSet {
	key := cache.Key(cache.KindTasks, analysis.Topic, analysis.CourseName)
	var cached []models.Task
	if cache.GetJSON(ctx, g.cache, key, &cached) && len(cached) > 0 {
		return TaskSet{Tasks: cached, Source: models.SourceAI}
	}

	tasks, err := g.generate(ctx, analysis)
	if err != nil {
		g.logger.Warn("Falling back to default tasks", zap.String("topic", analysis.Topic), zap.Error(err))
		return TaskSet{Tasks: FallbackTasks(analysis), Source: models.SourceFallback}
	}

	if err := cache.PutJSON(ctx, g.cache, key, tasks, g.ttl); err != nil {
		g.logger.Warn("Failed to cache tasks", zap.String("topic", analysis.Topic), zap.Error(err))
	}
	return TaskSet{Tasks: tasks, Source: models.SourceAI}
}

func (g *TaskGenerator) generate(ctx context.Context, analysis models.TopicAnalysis) ([]models.Task, error) {
	data := promptData(analysis)
	data.TaskCount, data.EasyCount, data.MediumCount, data.HardCount = TaskCount, easyTasks, mediumTasks, hardTasks

	user, err := g.prompts.BuildPrompt(prompts.ModeTasks, prompts.DefaultVariant, data)
	if err != nil {
		return nil, err
	}
	resp, err := g.router.Route(ctx, models.TierHeavy, g.prompts.SystemPrompt(prompts.ModeTasks), user, taskOptions)
	if err != nil {
		return nil, err
	}

	tasks, dropped, err := ParseTasks(resp.Content)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		g.logger.Info("Dropped unusable tasks", zap.String("topic", analysis.Topic), zap.Int("dropped", dropped))
	}
	return tasks, nil
}

// ParseTasks accepts either {"tasks": [...]} or a bare array. Each item is
// defaulted field by field; items with no question or no answer are dropped
// and counted. An answer with no usable item is an error.
func ParseTasks(content string) ([]models.Task, int, error) {
	raw := []byte(utils.ExtractJSON(content))

	var items []map[string]any
	var wrapped struct {
		Tasks []map[string]any `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Tasks != nil {
		items = wrapped.Tasks
	} else if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]models.Task, 0, len(items))
	dropped := 0
	for i, item := range items {
		if len(tasks) == TaskCount {
			break
		}
		task, ok := normalizeTask(item, i)
		if !ok {
			dropped++
			continue
		}
		if err := validate.Struct(task); err != nil {
			dropped++
			continue
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, dropped, fmt.Errorf("%w: no usable tasks", ErrValidationFailed)
	}
	return tasks, dropped, nil
}

// normalizeTask is pure. It reports false when the item has no question or
// no correct answer, which cannot be defaulted.
func normalizeTask(item map[string]any, index int) (models.Task, bool) {
	task := models.Task{
		ID:          stringField(item, "id"),
		Question:    strings.TrimSpace(stringField(item, "question")),
		Explanation: strings.TrimSpace(stringField(item, "explanation")),
		Hint:        strings.TrimSpace(stringField(item, "hint")),
		Options:     stringList(item["options"]),
		Difficulty:  utils.NormalizeDifficulty(stringField(item, "difficulty")),
		Type:        strings.ToLower(strings.TrimSpace(stringField(item, "type"))),
	}
	if task.Question == "" {
		return models.Task{}, false
	}
	if task.ID == "" {
		task.ID = "task-" + strconv.Itoa(index+1)
	}
	if !models.ValidDifficulties[task.Difficulty] {
		task.Difficulty = models.DifficultyMedium
	}

	answer, present := item["correctAnswer"]
	if !present || answer == nil {
		return models.Task{}, false
	}
	if !models.ValidTaskTypes[task.Type] {
		task.Type = inferTaskType(task.Options, answer)
	}

	switch task.Type {
	case models.TaskTypeMultiple:
		list := stringList(answer)
		if len(list) == 0 {
			return models.Task{}, false
		}
		task.CorrectAnswer = list
	case models.TaskTypeNumber:
		n, ok := numberValue(answer)
		if !ok {
			return models.Task{}, false
		}
		task.CorrectAnswer = n
	default:
		s := scalarString(answer)
		if s == "" {
			return models.Task{}, false
		}
		task.CorrectAnswer = s
	}
	return task, true
}

func inferTaskType(options []string, answer any) string {
	if _, isList := answer.([]any); isList {
		return models.TaskTypeMultiple
	}
	if len(options) > 0 {
		return models.TaskTypeSingle
	}
	if _, ok := answer.(float64); ok {
		return models.TaskTypeNumber
	}
	return models.TaskTypeText
}

func stringField(item map[string]any, key string) string {
	return scalarString(item[key])
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		if len(t) > 0 {
			return scalarString(t[0])
		}
	}
	return ""
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := scalarString(e); s != "" {
				out = append(out, s)
			}
		}
	case string, float64, bool:
		if s := scalarString(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	}
	return 0, false
}

// FallbackTasks is the fixed set served when generation fails.
func FallbackTasks(analysis models.TopicAnalysis) []models.Task {
	topic := analysis.Topic
	term := topic
	if len(analysis.KeyTerms) > 0 {
		term = analysis.KeyTerms[0]
	}
	return []models.Task{
		{
			ID:            "fallback-1",
			Type:          models.TaskTypeText,
			Difficulty:    models.DifficultyEasy,
			Question:      fmt.Sprintf("In your own words, explain what %s is and why it matters in %s.", topic, analysis.CourseName),
			Options:       []string{},
			CorrectAnswer: fmt.Sprintf("A clear definition of %s with at least one reason it is useful.", topic),
			Explanation:   "Explaining a concept in your own words is the quickest check that you understood it.",
			Hint:          "Start with a one-sentence definition, then add an example.",
		},
		{
			ID:         "fallback-2",
			Type:       models.TaskTypeSingle,
			Difficulty: models.DifficultyMedium,
			Question:   fmt.Sprintf("Which of the following is a key term when studying %s?", topic),
			Options: []string{
				term,
				"An unrelated historical footnote",
				"A term from a different field",
				"None of the above",
			},
			CorrectAnswer: term,
			Explanation:   fmt.Sprintf("%s is central to %s.", term, topic),
			Hint:          "Look for the option that names part of the topic itself.",
		},
		{
			ID:            "fallback-3",
			Type:          models.TaskTypeText,
			Difficulty:    models.DifficultyHard,
			Question:      fmt.Sprintf("Describe a real-world situation where %s applies and walk through how you would use it.", topic),
			Options:       []string{},
			CorrectAnswer: fmt.Sprintf("A concrete scenario with a step-by-step application of %s.", topic),
			Explanation:   "Applying a concept to a new situation shows you can transfer it beyond the examples.",
			Hint:          "Pick a problem you have met before and explain each step.",
		},
	}
}
