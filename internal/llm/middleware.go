package llm

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	llmclient "mindmapgen/internal/llmClient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (timeouts, logging, hooks, circuit breaking).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		out = mws[i](out)
	}
	return out
}

// -------- Timeout --------

// WithTimeout bounds each GenerateJSON call. d <= 0 disables the bound.
func WithTimeout(d time.Duration) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if d <= 0 {
			return next
		}
		return &timeoutClient{next: next, d: d}
	}
}

type timeoutClient struct {
	next llmclient.LLMClient
	d    time.Duration
}

func (t *timeoutClient) Name() string { return t.next.Name() }
func (t *timeoutClient) Close() error { return t.next.Close() }
func (t *timeoutClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GenerateJSON(ctx, prompt)
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. A nil logger is a no-op logger.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	start := time.Now()
	fields := []zap.Field{
		zap.String("client", l.next.Name()),
		zap.String("request_id", RequestIDFrom(ctx)),
	}
	l.log.Debug("LLM request", append(fields, zap.Int("prompt_bytes", len(prompt)))...)
	raw, err := l.next.GenerateJSON(ctx, prompt)
	fields = append(fields, zap.Duration("duration", time.Since(start)))
	if err != nil {
		l.log.Warn("LLM error", append(fields, zap.Error(err))...)
		return raw, err
	}
	l.log.Debug("LLM response", append(fields, zap.Int("response_bytes", len(raw)))...)
	return raw, nil
}
