package llmclient

import (
	"context"
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderFake   Provider = "fake"
)

const (
	DefaultGenerationModel = "gemini-2.5-flash"
	DefaultEmbeddingModel  = "text-embedding-004"
)

type ProviderConfig struct {
	Provider        Provider
	APIKey          string
	GenerationModel string
	EmbeddingModel  string
}

// Capabilities are the process-wide handles shared by every request.
type Capabilities struct {
	Generator LLMClient
	Embedder  Embedder
}

func (c *Capabilities) Close() error {
	if c == nil || c.Generator == nil {
		return nil
	}
	return c.Generator.Close()
}

// Open constructs the generation and embedding capabilities for a provider.
func Open(ctx context.Context, cfg ProviderConfig) (*Capabilities, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider)))) {
	case ProviderFake:
		return &Capabilities{Generator: NewFakeClient(), Embedder: NewFakeEmbedder(64)}, nil
	case ProviderGemini, "":
		genModel := firstNonEmpty(cfg.GenerationModel, DefaultGenerationModel)
		embModel := firstNonEmpty(cfg.EmbeddingModel, DefaultEmbeddingModel)
		gen, err := NewGeminiClient(ctx, cfg.APIKey, genModel)
		if err != nil {
			return nil, err
		}
		emb, err := NewGeminiEmbedder(ctx, cfg.APIKey, embModel)
		if err != nil {
			return nil, err
		}
		return &Capabilities{Generator: gen, Embedder: emb}, nil
	default:
		return nil, fmt.Errorf("llmclient: unknown provider %q", cfg.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
