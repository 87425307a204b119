package llm

import (
	"context"
	"encoding/json"

	llmclient "mindmapgen/internal/llmClient"
)

// PromptHook defines callbacks around LLM requests.
type PromptHook interface {
	Before(ctx context.Context, requestID, prompt string)
	After(ctx context.Context, requestID string, raw json.RawMessage, err error)
}

type ctxKeyHook struct{}
type ctxKeyRequestID struct{}
type ctxKeyRunID struct{}

// WithRequestID attaches a request id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// RequestIDFrom returns the request id stored in the context.
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyRequestID{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}

// WithRunID attaches a server-minted id for one generation. Hooks are keyed by
// it so that callers reusing a request id never share hook state.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID{}, id)
}

// RunIDFrom returns the run id, falling back to the request id.
func RunIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID{}).(string); ok && v != "" {
		return v
	}
	return RequestIDFrom(ctx)
}

// WithPromptHook attaches a PromptHook to the context. Middlewares that call
// HookFrom(ctx) can use this to invoke Before/After around requests.
func WithPromptHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(PromptHook); ok {
			return h
		}
	}
	return nil
}

// WithHooks calls the hook around GenerateJSON. A non-nil fixed hook takes
// precedence over one found in the context; with neither it is a no-op.
func WithHooks(fixed PromptHook) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &hooked{next: next, fixed: fixed}
	}
}

type hooked struct {
	next  llmclient.LLMClient
	fixed PromptHook
}

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	hook := h.fixed
	if hook == nil {
		hook = HookFrom(ctx)
	}
	id := RunIDFrom(ctx)
	if hook != nil {
		hook.Before(ctx, id, prompt)
	}
	raw, err := h.next.GenerateJSON(ctx, prompt)
	if hook != nil {
		hook.After(ctx, id, raw, err)
	}
	return raw, err
}
