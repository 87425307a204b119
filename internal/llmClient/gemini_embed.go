package llmclient

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	genai "google.golang.org/genai"
)

// maxEmbedBatch is the per-request item limit of the embedding endpoint.
const maxEmbedBatch = 100

// GeminiEmbedder computes embeddings with the genai embedding models.
type GeminiEmbedder struct {
	cli   *genai.Client
	model string
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string) (*GeminiEmbedder, error) {
	cli, err := newGenaiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{cli: cli, model: model}, nil
}

func (e *GeminiEmbedder) Name() string { return "GeminiEmbed:" + e.model }

// Embed splits texts into sub-batches issued concurrently; results keep input order.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(texts); lo += maxEmbedBatch {
		hi := min(lo+maxEmbedBatch, len(texts))
		g.Go(func() error {
			vecs, err := e.embedBatch(gctx, texts[lo:hi])
			if err != nil {
				return err
			}
			copy(out[lo:hi], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := e.cli.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", got, len(texts))
	}
	vecs := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("embed: empty vector at %d", i)
		}
		vecs[i] = emb.Values
	}
	return vecs, nil
}
