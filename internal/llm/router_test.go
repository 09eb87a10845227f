package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

type fakeProvider struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error)
}

func (f *fakeProvider) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func (f *fakeProvider) GetProviderName() string { return f.name }

func failing(name, code string) *fakeProvider {
	return &fakeProvider{name: name, fn: func(context.Context, models.GenerationRequest) (*models.GenerationResponse, error) {
		return nil, &ProviderError{Provider: name, Code: code, Message: "failed"}
	}}
}

func answering(name, content string) *fakeProvider {
	return &fakeProvider{name: name, fn: func(context.Context, models.GenerationRequest) (*models.GenerationResponse, error) {
		return &models.GenerationResponse{Content: content}, nil
	}}
}

func TestRouteFallsThroughInOrder(t *testing.T) {
	a := failing("A", ErrCodeRateLimit)
	b := failing("B", ErrCodeInvalidResponse)
	c := answering("C", "hello")

	router := NewRouter(map[models.Tier][]Provider{models.TierHeavy: {a, b, c}}, time.Second, nil)

	resp, err := router.Route(context.Background(), models.TierHeavy, "sys", "user", models.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, "C", resp.ProviderID)
	assert.Equal(t, "hello", resp.Content)
	assert.EqualValues(t, 1, a.calls.Load())
	assert.EqualValues(t, 1, b.calls.Load())
	assert.EqualValues(t, 1, c.calls.Load())
}

func TestRouteStopsAtFirstSuccess(t *testing.T) {
	a := answering("A", "first")
	b := answering("B", "second")
	router := NewRouter(map[models.Tier][]Provider{models.TierFast: {a, b}}, time.Second, nil)

	resp, err := router.Route(context.Background(), models.TierFast, "", "u", models.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, "A", resp.ProviderID)
	assert.EqualValues(t, 0, b.calls.Load())
}

func TestRoutePassesRequestThrough(t *testing.T) {
	var got models.GenerationRequest
	p := &fakeProvider{name: "A", fn: func(_ context.Context, req models.GenerationRequest) (*models.GenerationResponse, error) {
		got = req
		return &models.GenerationResponse{Content: "x", ProviderID: "A/model"}, nil
	}}
	router := NewRouter(map[models.Tier][]Provider{models.TierFast: {p}}, time.Second, nil)

	opts := models.GenerationOptions{JSON: true, Temperature: 0.3, MaxTokens: 512}
	resp, err := router.Route(context.Background(), models.TierFast, "sys", "user", opts)
	require.NoError(t, err)
	assert.Equal(t, "A/model", resp.ProviderID, "adapter-supplied id is kept")
	assert.Equal(t, models.GenerationRequest{Tier: models.TierFast, SystemPrompt: "sys", UserPrompt: "user", Options: opts}, got)
}

func TestRouteExhaustedNamesEveryAttempt(t *testing.T) {
	router := NewRouter(map[models.Tier][]Provider{
		models.TierHeavy: {failing("A", ErrCodeRateLimit), failing("B", ErrCodeTimeout)},
	}, time.Second, nil)

	_, err := router.Route(context.Background(), models.TierHeavy, "", "u", models.GenerationOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllProvidersExhausted))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, "A", exhausted.Attempts[0].Provider)
	assert.Equal(t, ErrCodeRateLimit, exhausted.Attempts[0].Code)
	assert.Equal(t, "B", exhausted.Attempts[1].Provider)
	assert.Equal(t, ErrCodeTimeout, exhausted.Attempts[1].Code)
	assert.Contains(t, err.Error(), "A (rate_limit_exceeded)")
	assert.Contains(t, err.Error(), "B (timeout)")
}

func TestRouteUnknownTier(t *testing.T) {
	router := NewRouter(nil, time.Second, nil)
	_, err := router.Route(context.Background(), models.TierVision, "", "u", models.GenerationOptions{})
	assert.ErrorIs(t, err, ErrAllProvidersExhausted)
	assert.Contains(t, err.Error(), "no providers configured")
}

func TestRouteEmptyContentIsInvalidResponse(t *testing.T) {
	empty := answering("A", "   ")
	good := answering("B", "ok")
	router := NewRouter(map[models.Tier][]Provider{models.TierFast: {empty, good}}, time.Second, nil)

	resp, err := router.Route(context.Background(), models.TierFast, "", "u", models.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, "B", resp.ProviderID)
}

func TestRoutePerCallTimeout(t *testing.T) {
	slow := &fakeProvider{name: "slow", fn: func(ctx context.Context, _ models.GenerationRequest) (*models.GenerationResponse, error) {
		<-ctx.Done()
		return nil, errors.New("gave up")
	}}
	fast := answering("fast", "ok")
	router := NewRouter(map[models.Tier][]Provider{models.TierFast: {slow, fast}}, 20*time.Millisecond, nil)

	var outcomes []string
	var mu sync.Mutex
	router.onAttempt = func(_ models.Tier, provider, outcome string, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, provider+":"+outcome)
	}

	resp, err := router.Route(context.Background(), models.TierFast, "", "u", models.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fast", resp.ProviderID)
	assert.Equal(t, []string{"slow:timeout", "fast:success"}, outcomes)
}

func TestRouteHonoursCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeProvider{name: "A", fn: func(context.Context, models.GenerationRequest) (*models.GenerationResponse, error) {
		cancel()
		return nil, context.Canceled
	}}
	second := answering("B", "ok")
	router := NewRouter(map[models.Tier][]Provider{models.TierFast: {first, second}}, time.Second, nil)

	_, err := router.Route(ctx, models.TierFast, "", "u", models.GenerationOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, second.calls.Load())
}

func TestRouterConcurrentUse(t *testing.T) {
	p := answering("A", "ok")
	router := NewRouter(map[models.Tier][]Provider{models.TierFast: {p}}, time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := router.Route(context.Background(), models.TierFast, "", "u", models.GenerationOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 20, p.calls.Load())
}

func TestRouterChainIsCopied(t *testing.T) {
	chain := []Provider{answering("A", "ok")}
	router := NewRouter(map[models.Tier][]Provider{models.TierFast: chain}, 0, nil)
	chain[0] = answering("Z", "ok")

	assert.Equal(t, []string{"A"}, router.Chain(models.TierFast))
	assert.Equal(t, DefaultCallTimeout, router.callTimeout)
	assert.False(t, router.Ready(), "heavy tier is empty")
}
