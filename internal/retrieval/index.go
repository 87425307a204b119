// Package retrieval keeps a request-scoped vector index over text chunks.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"mindmapgen/internal/chunk"
	llmclient "mindmapgen/internal/llmClient"
	"mindmapgen/internal/types"
)

// DefaultTopK is the number of chunks returned when a query does not ask for more.
const DefaultTopK = 4

// Index holds one embedding per chunk. It lives for a single request and is never
// shared or cached.
type Index struct {
	embedder llmclient.Embedder
	chunks   []types.Chunk
	vectors  [][]float32
	dim      int
}

// Build embeds every chunk with one Embed call.
func Build(ctx context.Context, embedder llmclient.Embedder, chunks []types.Chunk) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: embedder is nil")
	}
	idx := &Index{embedder: embedder, chunks: chunks}
	if len(chunks) == 0 {
		return idx, nil
	}
	vecs, err := embedder.Embed(ctx, chunk.Texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("retrieval: got %d vectors for %d chunks", len(vecs), len(chunks))
	}
	idx.dim = len(vecs[0])
	for i, v := range vecs {
		if len(v) != idx.dim {
			return nil, fmt.Errorf("retrieval: vector %d has dimension %d, want %d", i, len(v), idx.dim)
		}
	}
	idx.vectors = vecs
	return idx, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Query returns up to k chunks ordered by descending cosine similarity to query.
// Equal scores keep chunk order. k <= 0 uses DefaultTopK.
func (idx *Index) Query(ctx context.Context, query string, k int) ([]types.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(idx.chunks) == 0 {
		return nil, nil
	}
	qv, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	if len(qv) != 1 || len(qv[0]) != idx.dim {
		return nil, fmt.Errorf("retrieval: query vector does not match index dimension %d", idx.dim)
	}

	scored := make([]types.ScoredChunk, len(idx.chunks))
	for i, c := range idx.chunks {
		scored[i] = types.ScoredChunk{Chunk: c, Score: Cosine(qv[0], idx.vectors[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero norm.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
