package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mindmapgen/internal/gateway/config"
	"mindmapgen/internal/llm"
	llmclient "mindmapgen/internal/llmClient"
	"mindmapgen/internal/observability"
	"mindmapgen/internal/pipeline"
)

// Pipeline is a ready Generator plus the capability handles it owns.
type Pipeline struct {
	Generator *pipeline.Generator
	caps      *llmclient.Capabilities
}

// NewPipeline opens the configured provider and assembles the generation
// pipeline around it. metrics may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Collector) (*Pipeline, error) {
	caps, err := llmclient.Open(ctx, llmclient.ProviderConfig{
		Provider:        cfg.Provider,
		APIKey:          cfg.GeminiAPIKey,
		GenerationModel: cfg.GenerationModel,
		EmbeddingModel:  cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s provider: %w", cfg.Provider, err)
	}

	recorder, err := initDiagnostics(cfg, logger)
	if err != nil {
		_ = caps.Close()
		return nil, err
	}

	var breaker llm.Middleware
	embedder := caps.Embedder
	if cfg.Breaker.Enabled {
		genCfg := breakerConfig("generation", cfg.Breaker)
		breaker = llm.WithBreaker(genCfg, logger)
		embedder = llm.BreakEmbedder(embedder, breakerConfig("embedding", cfg.Breaker), logger)
	}
	generator := llm.Wrap(caps.Generator,
		llm.WithLogging(logger),
		llm.WithHooks(nil),
		breaker,
		llm.WithRateLimit(cfg.GenerationRPS, cfg.GenerationBurst),
		llm.WithTimeout(cfg.GenerationTimeout),
	)

	gen, err := pipeline.New(pipeline.Config{
		TopK:         cfg.RetrievalTopK,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		EmbedTimeout: cfg.EmbedTimeout,
		RepairJSON:   cfg.RepairJSON,
	}, pipeline.Deps{
		Generator: generator,
		Embedder:  embedder,
		Logger:    logger,
		Metrics:   metrics,
		Recorder:  recorder,
	})
	if err != nil {
		_ = caps.Close()
		return nil, err
	}
	logger.Info("pipeline ready",
		zap.String("generator", generator.Name()),
		zap.String("embedder", embedder.Name()),
		zap.Bool("breaker", cfg.Breaker.Enabled),
		zap.Bool("diagnostics", recorder != nil))
	return &Pipeline{Generator: gen, caps: caps}, nil
}

func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	return p.caps.Close()
}

func breakerConfig(name string, c config.BreakerConfig) llm.BreakerConfig {
	out := llm.DefaultBreakerConfig(name)
	if c.Timeout > 0 {
		out.Timeout = c.Timeout
	}
	if c.MinRequests > 0 {
		out.MinRequests = c.MinRequests
	}
	if c.FailureRatio > 0 {
		out.FailureRatio = c.FailureRatio
	}
	return out
}
