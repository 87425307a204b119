// Package enrich assigns presentation styles to generated nodes.
package enrich

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"

	"mindmapgen/internal/types"
)

const (
	TextColor = "#333333"
	Opacity   = 0.4
)

// Enricher is not safe for concurrent use; the underlying *rand.Rand is not.
type Enricher struct {
	rng *rand.Rand
}

// New returns an Enricher drawing from rng, or from a crypto-seeded ChaCha8
// source when rng is nil.
func New(rng *rand.Rand) *Enricher {
	if rng == nil {
		var seed [32]byte
		_, _ = crand.Read(seed[:])
		rng = rand.New(rand.NewChaCha8(seed))
	}
	return &Enricher{rng: rng}
}

// Apply sets Style on every node. Ids, labels, positions and edges are left as is.
func (e *Enricher) Apply(res *types.GenerationResult) {
	if res == nil {
		return
	}
	for i := range res.MindMap.Nodes {
		res.MindMap.Nodes[i].Style = &types.NodeStyle{
			BackgroundColor: e.color(),
			Color:           TextColor,
			Opacity:         Opacity,
		}
	}
}

// color draws a uniform 24-bit value.
func (e *Enricher) color() string {
	return fmt.Sprintf("#%06X", e.rng.Uint32N(1<<24))
}
