package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	llmclient "mindmapgen/internal/llmClient"
)

type stubClient struct {
	mu    sync.Mutex
	calls int
	raw   json.RawMessage
	err   error
	wait  bool
}

func (s *stubClient) Name() string { return "stub" }
func (s *stubClient) Close() error { return nil }
func (s *stubClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.raw, s.err
}

type recordingHook struct {
	before []string
	after  []error
}

func (r *recordingHook) Before(_ context.Context, requestID, _ string) {
	r.before = append(r.before, requestID)
}
func (r *recordingHook) After(_ context.Context, _ string, _ json.RawMessage, err error) {
	r.after = append(r.after, err)
}

func TestWrapOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next llmclient.LLMClient) llmclient.LLMClient {
			order = append(order, name)
			return next
		}
	}
	Wrap(&stubClient{}, mark("A"), nil, mark("B"))
	// Inner middlewares are applied first.
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestWithTimeoutCancelsSlowCall(t *testing.T) {
	inner := &stubClient{wait: true}
	c := Wrap(inner, WithTimeout(10*time.Millisecond))
	_, err := c.GenerateJSON(context.Background(), "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	same := WithTimeout(0)(inner)
	assert.Same(t, inner, same)
}

func TestWithHooksFixedAndContext(t *testing.T) {
	inner := &stubClient{raw: json.RawMessage(`{}`)}
	fixed := &recordingHook{}
	c := Wrap(inner, WithHooks(fixed))
	ctx := WithRequestID(context.Background(), "req-1")
	_, err := c.GenerateJSON(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"req-1"}, fixed.before)
	assert.Equal(t, []error{nil}, fixed.after)

	fromCtx := &recordingHook{}
	c = Wrap(inner, WithHooks(nil))
	_, _ = c.GenerateJSON(WithPromptHook(context.Background(), fromCtx), "p")
	assert.Equal(t, []string{"unknown"}, fromCtx.before)
}

func TestWithHooksKeysByRunID(t *testing.T) {
	hook := &recordingHook{}
	c := Wrap(&stubClient{raw: json.RawMessage(`{}`)}, WithHooks(hook))
	ctx := WithRequestID(context.Background(), "client-fixed-id")

	_, err := c.GenerateJSON(WithRunID(ctx, "client-fixed-id/run-1"), "p")
	require.NoError(t, err)
	_, err = c.GenerateJSON(WithRunID(ctx, "client-fixed-id/run-2"), "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"client-fixed-id/run-1", "client-fixed-id/run-2"}, hook.before)

	assert.Equal(t, "client-fixed-id", RunIDFrom(ctx))
	assert.Equal(t, "client-fixed-id", RequestIDFrom(WithRunID(ctx, "client-fixed-id/run-1")))
}

func TestWithLoggingRecordsErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	inner := &stubClient{err: errors.New("upstream down")}
	c := Wrap(inner, WithLogging(zap.New(core)))
	_, err := c.GenerateJSON(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("LLM error").Len())
}

func TestWithBreakerOpensAfterFailures(t *testing.T) {
	inner := &stubClient{err: errors.New("503")}
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 2
	cfg.FailureRatio = 0.5
	c := Wrap(inner, WithBreaker(cfg, nil))

	for i := 0; i < 2; i++ {
		_, err := c.GenerateJSON(context.Background(), "p")
		require.EqualError(t, err, "503")
	}
	_, err := c.GenerateJSON(context.Background(), "p")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}

func TestWithBreakerIgnoresEmptyGeneration(t *testing.T) {
	inner := &stubClient{err: llmclient.ErrEmptyGeneration}
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 1
	c := Wrap(inner, WithBreaker(cfg, nil))
	for i := 0; i < 3; i++ {
		_, err := c.GenerateJSON(context.Background(), "p")
		assert.ErrorIs(t, err, llmclient.ErrEmptyGeneration)
	}
	assert.Equal(t, 3, inner.calls)
}

type failingEmbedder struct{ calls int }

func (f *failingEmbedder) Name() string { return "failing" }
func (f *failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	f.calls++
	return nil, errors.New("quota")
}

func TestBreakEmbedder(t *testing.T) {
	inner := &failingEmbedder{}
	cfg := DefaultBreakerConfig("embed")
	cfg.MinRequests = 1
	cfg.FailureRatio = 1
	e := BreakEmbedder(inner, cfg, nil)

	_, err := e.Embed(context.Background(), []string{"a"})
	require.EqualError(t, err, "quota")
	_, err = e.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "failing", e.Name())
}

func TestBreakEmbedderPassesVectors(t *testing.T) {
	e := BreakEmbedder(llmclient.NewFakeEmbedder(8), DefaultBreakerConfig("embed"), nil)
	vecs, err := e.Embed(context.Background(), []string{"a b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
}

func TestWithRateLimitSpacesCalls(t *testing.T) {
	inner := &stubClient{raw: json.RawMessage(`{}`)}
	c := Wrap(inner, WithRateLimit(10, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.GenerateJSON(context.Background(), "p")
		require.NoError(t, err)
	}
	// The first call uses the burst token; the next two wait ~100ms each.
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRateLimitHonoursContext(t *testing.T) {
	inner := &stubClient{raw: json.RawMessage(`{}`)}
	c := Wrap(inner, WithRateLimit(0.1, 1))

	_, err := c.GenerateJSON(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GenerateJSON(ctx, "p")
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRateLimitDisabled(t *testing.T) {
	inner := &stubClient{}
	assert.Same(t, llmclient.LLMClient(inner), WithRateLimit(0, 5)(inner))
}
