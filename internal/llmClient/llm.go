package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrEmptyGeneration is returned when the model produced no text at all.
var ErrEmptyGeneration = errors.New("llm: no text returned from model")

// LLMClient generates a single JSON document from a prompt.
type LLMClient interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Embedder turns texts into fixed-length vectors, one per input, in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
