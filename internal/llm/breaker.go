package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	llmclient "mindmapgen/internal/llmClient"
)

// ErrCircuitOpen is returned without calling the model while the breaker is open.
var ErrCircuitOpen = errors.New("llm: circuit open")

type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.8,
	}
}

func newBreaker(cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, llmclient.ErrEmptyGeneration) ||
				errors.Is(err, context.Canceled)
		},
	})
}

func openErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// WithBreaker fails fast while the upstream model keeps failing. Empty generations
// and caller cancellations do not count as upstream failures.
func WithBreaker(cfg BreakerConfig, logger *zap.Logger) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &breaking{next: next, cb: newBreaker(cfg, logger)}
	}
}

type breaking struct {
	next llmclient.LLMClient
	cb   *gobreaker.CircuitBreaker
}

func (b *breaking) Name() string { return b.next.Name() }
func (b *breaking) Close() error { return b.next.Close() }

func (b *breaking) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.GenerateJSON(ctx, prompt)
	})
	if err != nil {
		return nil, openErr(err)
	}
	raw, _ := out.(json.RawMessage)
	return raw, nil
}

// BreakEmbedder guards an Embedder with its own breaker.
func BreakEmbedder(next llmclient.Embedder, cfg BreakerConfig, logger *zap.Logger) llmclient.Embedder {
	return &breakingEmbedder{next: next, cb: newBreaker(cfg, logger)}
}

type breakingEmbedder struct {
	next llmclient.Embedder
	cb   *gobreaker.CircuitBreaker
}

func (b *breakingEmbedder) Name() string { return b.next.Name() }

func (b *breakingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Embed(ctx, texts)
	})
	if err != nil {
		return nil, openErr(err)
	}
	vecs, _ := out.([][]float32)
	return vecs, nil
}
