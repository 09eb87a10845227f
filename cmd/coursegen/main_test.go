package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/bootstrap"
	"github.com/x1syne/ai-study-agent-sub001/internal/generation"
	"github.com/x1syne/ai-study-agent-sub001/internal/llm"
	"github.com/x1syne/ai-study-agent-sub001/internal/metrics"
	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

const testConfig = `
router:
  chains:
    fast: [fake]
    heavy: [fake]
    chat: [fake]
    vision: [fake]
providers:
  fake:
    type: openai
cache:
  backend: memory
  min_lesson_length: 10
`

type cannedProvider struct {
	calls atomic.Int32
}

func (p *cannedProvider) Generate(_ context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	p.calls.Add(1)
	switch {
	case req.Tier == models.TierFast:
		return &models.GenerationResponse{Content: `{"nature":["practical"],"complexity":{"base":2,"depth":2,"prerequisites":[]},
"contentFormats":["text"],"connections":{"relatedTopics":[],"realApplications":[],"industries":[]},
"keyTerms":["soil","seed","water","light","harvest"],"tone":"conversational","estimatedTimeMinutes":15}`}, nil
	case req.Options.JSON:
		return &models.GenerationResponse{Content: `[{"type":"single","difficulty":"easy","question":"Which needs light?","options":["seed","rock"],"correctAnswer":"seed"}]`}, nil
	default:
		return &models.GenerationResponse{Content: "Plants grow from seeds."}, nil
	}
}

func (p *cannedProvider) GetProviderName() string { return "fake" }

func executeCommand(t *testing.T, provider llm.Provider, args ...string) (string, string, error) {
	t.Helper()
	return executeCommandWithConfig(t, testConfig, provider, args...)
}

func executeCommandWithConfig(t *testing.T, config string, provider llm.Provider, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	configFile := filepath.Join(t.TempDir(), "coursegen.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(config), 0o600))

	rootCmd, state := newRootCmd()
	state.logger = zap.NewNop()
	state.options = []bootstrap.Option{
		bootstrap.WithProviders(map[string]llm.Provider{"fake": provider}),
		bootstrap.WithMetrics(metrics.New(prometheus.NewRegistry())),
	}

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(append([]string{"--config", configFile}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestGenerateCommand_Markdown(t *testing.T) {
	provider := &cannedProvider{}

	out, stderr, err := executeCommand(t, provider, "generate", "growing", "plants", "--course", "Botany")

	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, out, "## Introduction")
	assert.Contains(t, out, "Plants grow from seeds.")
	assert.Contains(t, out, "## Practice")
	assert.Contains(t, out, "1. [easy] Which needs light?")
	assert.Contains(t, out, "   - seed")
	assert.Equal(t, int32(generation.SectionCount+2), provider.calls.Load())
}

func TestGenerateCommand_JSONToFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "lesson.json")

	out, _, err := executeCommand(t, &cannedProvider{}, "generate", "photosynthesis", "--json", "--out", outFile)

	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content"`)
	assert.Contains(t, string(data), `"courseName": "General"`)
}

func TestGenerateCommand_WarnsOnPlaceholders(t *testing.T) {
	failing := &failingProvider{}

	out, stderr, err := executeCommand(t, failing, "generate", "photosynthesis")

	require.NoError(t, err)
	assert.Contains(t, out, "could not be generated right now")
	assert.Contains(t, stderr, "warning: 6 of 6 sections could not be generated")
}

func TestGenerateCommand_RejectsShortTopic(t *testing.T) {
	_, _, err := executeCommand(t, &cannedProvider{}, "generate", "ab")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least")
}

func TestGenerateCommand_RequiresTopic(t *testing.T) {
	_, _, err := executeCommand(t, &cannedProvider{}, "generate")

	require.Error(t, err)
}

func TestCachePurgeCommand(t *testing.T) {
	out, _, err := executeCommand(t, &cannedProvider{}, "cache", "purge")

	require.NoError(t, err)
	assert.Equal(t, "removed 0 expired entries\n", out)
}

func TestCachePurgeCommand_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	config := strings.Replace(testConfig, "backend: memory", "backend: redis", 1) +
		"redis:\n  addr: " + mr.Addr() + "\n"

	_, _, err := executeCommandWithConfig(t, config, &cannedProvider{}, "cache", "purge")

	require.Error(t, err)
	assert.ErrorIs(t, err, errNoPurger)
}

func TestCacheInvalidateCommand(t *testing.T) {
	out, _, err := executeCommand(t, &cannedProvider{}, "cache", "invalidate", "photosynthesis")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	for _, line := range lines {
		assert.Regexp(t, `^(lesson|analysis|tasks):[0-9a-f]{64}$`, line)
	}
}

type failingProvider struct{}

func (failingProvider) Generate(context.Context, models.GenerationRequest) (*models.GenerationResponse, error) {
	return nil, &llm.ProviderError{Provider: "fake", Code: llm.ErrCodeServiceDown, Message: "offline"}
}

func (failingProvider) GetProviderName() string { return "fake" }
