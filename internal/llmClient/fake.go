package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// reTarget reads the node target the prompt asks for, e.g. "(target: 4)".
var reTarget = regexp.MustCompile(`\(target: (\d+)\)`)

// FakeClient returns a deterministic mind map sized to the prompt's node target,
// for offline runs and tests.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target := 4
	if m := reTarget.FindStringSubmatch(prompt); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			target = n
		}
	}

	type node struct {
		ID       string            `json:"id"`
		Data     map[string]string `json:"data"`
		Position map[string]int    `json:"position"`
	}
	type edge struct {
		ID     string `json:"id"`
		Source string `json:"source"`
		Target string `json:"target"`
	}
	nodes := []node{{ID: "1", Data: map[string]string{"label": "Main Topic"}, Position: map[string]int{"x": 0, "y": 0}}}
	var edges []edge
	// Children fan out in a binary tree so depth grows with the target.
	for i := 2; i <= target; i++ {
		parent := i / 2
		level := 0
		for p := i; p > 1; p /= 2 {
			level++
		}
		id := strconv.Itoa(i)
		nodes = append(nodes, node{
			ID:       id,
			Data:     map[string]string{"label": fmt.Sprintf("Subtopic %d", i-1)},
			Position: map[string]int{"x": 250 * level, "y": 100*(i%(1<<level)) - 50*(1<<level)},
		})
		edges = append(edges, edge{ID: fmt.Sprintf("e%d-%d", parent, i), Source: strconv.Itoa(parent), Target: id})
	}
	if edges == nil {
		edges = []edge{}
	}
	obj := map[string]any{
		"key_points": []string{"fake key point 1", "fake key point 2"},
		"mindmap": map[string]any{
			"nodes": nodes,
			"edges": edges,
		},
	}
	b, _ := json.Marshal(obj)
	return json.RawMessage(b), nil
}

// FakeEmbedder hashes lowercase word tokens into a fixed number of buckets.
// Texts sharing vocabulary get a higher cosine similarity.
type FakeEmbedder struct {
	Dim int
}

func NewFakeEmbedder(dim int) *FakeEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &FakeEmbedder{Dim: dim}
}

func (f *FakeEmbedder) Name() string { return "FakeEmbed" }

func (f *FakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, f.Dim)
		words := strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			vec[h.Sum32()%uint32(f.Dim)]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vec {
				vec[j] *= scale
			}
		}
		out[i] = vec
	}
	return out, nil
}
