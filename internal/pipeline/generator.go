// Package pipeline runs one text-to-mind-map generation end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"mindmapgen/internal/apperr"
	"mindmapgen/internal/chunk"
	"mindmapgen/internal/diagnostics"
	"mindmapgen/internal/enrich"
	"mindmapgen/internal/llm"
	llmclient "mindmapgen/internal/llmClient"
	"mindmapgen/internal/observability"
	"mindmapgen/internal/parse"
	"mindmapgen/internal/prompt"
	"mindmapgen/internal/retrieval"
	"mindmapgen/internal/sizing"
	"mindmapgen/internal/types"
	"mindmapgen/internal/validate"
)

// Stage names used for spans, metrics and logs.
const (
	StageValidate = "validate"
	StageChunk    = "chunk"
	StageIndex    = "index"
	StageRetrieve = "retrieve"
	StageCompose  = "compose"
	StageGenerate = "generate"
	StageParse    = "parse"
	StageEnrich   = "enrich"
)

const rawPreviewBytes = 200

type Config struct {
	TopK         int
	ChunkSize    int
	ChunkOverlap int
	EmbedTimeout time.Duration
	RepairJSON   bool
}

// Deps are the process-wide handles a Generator uses. Generator and Embedder
// are required; the rest may be nil.
type Deps struct {
	Generator llmclient.LLMClient
	Embedder  llmclient.Embedder
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Recorder  *diagnostics.Recorder
	Rand      *rand.Rand
}

// Generator is safe for concurrent use. Each call builds its own retrieval
// index, which is dropped when the call returns.
type Generator struct {
	cfg       Config
	gen       llmclient.LLMClient
	emb       llmclient.Embedder
	log       *zap.Logger
	metrics   *observability.Collector
	recorder  *diagnostics.Recorder
	validator *validate.Validator
	splitter  *chunk.Splitter
	parser    *parse.Parser

	enrichMu sync.Mutex
	enricher *enrich.Enricher
}

func New(cfg Config, deps Deps) (*Generator, error) {
	if deps.Generator == nil {
		return nil, errors.New("pipeline: generation client is required")
	}
	if deps.Embedder == nil {
		return nil, errors.New("pipeline: embedder is required")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	g := &Generator{
		cfg:       cfg,
		gen:       deps.Generator,
		emb:       deps.Embedder,
		log:       log,
		metrics:   deps.Metrics,
		recorder:  deps.Recorder,
		validator: validate.New(validate.Options{}),
		splitter:  chunk.New(cfg.ChunkSize, cfg.ChunkOverlap),
		enricher:  enrich.New(deps.Rand),
	}
	g.parser = parse.New(parse.Options{
		RepairJSON: cfg.RepairJSON,
		Logger:     log,
		OutOfRange: func(int, types.SizingTarget) { g.metrics.RecordOutOfRange() },
	})
	return g, nil
}

// Generate validates text, retrieves its most relevant chunks, asks the model
// for a mind map and returns the parsed, styled result. Every failure is an
// *apperr.Error.
func (g *Generator) Generate(ctx context.Context, text string) (res *types.GenerationResult, err error) {
	requestID := llm.RequestIDFrom(ctx)
	if requestID == "unknown" {
		requestID = uuid.NewString()
		ctx = llm.WithRequestID(ctx, requestID)
	}
	// Diagnostics are keyed per run; the request id comes from the caller and may repeat.
	runID := requestID + "/" + uuid.NewString()
	ctx = llm.WithRunID(ctx, runID)
	if g.recorder != nil {
		ctx = llm.WithPromptHook(ctx, g.recorder)
	}
	log := g.log.With(zap.String("request_id", requestID), zap.String("run_id", runID))
	start := time.Now()

	defer func() {
		if err != nil {
			err = apperr.From(err)
			g.metrics.RecordOutcome(string(apperr.KindOf(err)))
			log.Warn("Mindmap generation failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		} else {
			g.metrics.RecordOutcome("ok")
			g.metrics.RecordNodes(len(res.MindMap.Nodes))
		}
		_ = g.recorder.Flush(context.WithoutCancel(ctx), runID, err)
	}()

	if err = g.stage(ctx, StageValidate, func(context.Context) error {
		var verr error
		text, verr = g.validator.Validate(text)
		return verr
	}); err != nil {
		return nil, err
	}

	length := utf8.RuneCountInString(text)
	target := sizing.For(length)
	log.Info("Generating mindmap",
		zap.Int("text_length", length),
		zap.Int("target_nodes", target.TargetNodes),
		zap.Int("depth_levels", target.DepthLevels))

	var chunks []types.Chunk
	_ = g.stage(ctx, StageChunk, func(context.Context) error {
		chunks = g.splitter.Split(text)
		return nil
	})

	var idx *retrieval.Index
	if err = g.stage(ctx, StageIndex, func(ctx context.Context) error {
		if g.cfg.EmbedTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.cfg.EmbedTimeout)
			defer cancel()
		}
		var berr error
		idx, berr = retrieval.Build(ctx, g.emb, chunks)
		return berr
	}); err != nil {
		return nil, apperr.Wrap(apperr.GenerationUnavailable, "embedding failed", err)
	}

	query := prompt.Query(length, target)
	var retrieved []types.ScoredChunk
	if err = g.stage(ctx, StageRetrieve, func(ctx context.Context) error {
		if g.cfg.EmbedTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.cfg.EmbedTimeout)
			defer cancel()
		}
		var qerr error
		retrieved, qerr = idx.Query(ctx, query, g.cfg.TopK)
		return qerr
	}); err != nil {
		return nil, apperr.Wrap(apperr.GenerationUnavailable, "embedding failed", err)
	}
	log.Debug("Retrieved context", zap.Int("chunks", len(chunks)), zap.Int("retrieved", len(retrieved)))

	var instruction string
	if err = g.stage(ctx, StageCompose, func(context.Context) error {
		var cerr error
		instruction, cerr = prompt.Compose(prompt.Spec{
			TextLength: length,
			Target:     target,
			Context:    retrieved,
			Query:      query,
		})
		return cerr
	}); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "compose prompt", err)
	}

	var raw []byte
	if err = g.stage(ctx, StageGenerate, func(ctx context.Context) error {
		var gerr error
		raw, gerr = g.gen.GenerateJSON(ctx, instruction)
		return gerr
	}); err != nil {
		if errors.Is(err, llmclient.ErrEmptyGeneration) {
			return nil, apperr.Wrap(apperr.EmptyGeneration, "model returned no text", err)
		}
		return nil, apperr.Wrap(apperr.GenerationUnavailable, "generation failed", err)
	}

	if err = g.stage(ctx, StageParse, func(context.Context) error {
		var perr error
		res, perr = g.parser.Parse(raw, target)
		return perr
	}); err != nil {
		log.Warn("Unusable model output",
			zap.String("kind", string(apperr.KindOf(err))),
			zap.String("raw_preview", parse.Preview(raw, rawPreviewBytes)))
		return nil, err
	}

	_ = g.stage(ctx, StageEnrich, func(context.Context) error {
		g.enrichMu.Lock()
		defer g.enrichMu.Unlock()
		g.enricher.Apply(res)
		return nil
	})

	log.Info("Generated mindmap",
		zap.Int("nodes", len(res.MindMap.Nodes)),
		zap.Int("edges", len(res.MindMap.Edges)),
		zap.Int("key_points", len(res.KeyPoints)),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (g *Generator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartStage(ctx, name, attribute.String("request_id", llm.RequestIDFrom(ctx)))
	start := time.Now()
	err := fn(ctx)
	g.metrics.ObserveStage(name, time.Since(start))
	observability.EndStage(span, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
