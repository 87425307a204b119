package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"mindmapgen/internal/apperr"
	"mindmapgen/internal/types"
)

// MaxBodyBytes bounds the request body; the text itself is limited further by
// the validator.
const MaxBodyBytes = 64 << 10

// Generator is the pipeline as seen by the HTTP layer.
type Generator interface {
	Generate(ctx context.Context, text string) (*types.GenerationResult, error)
}

type GenerateHandler struct {
	gen Generator
	log *zap.Logger
}

func NewGenerateHandler(gen Generator, log *zap.Logger) *GenerateHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GenerateHandler{gen: gen, log: log}
}

type generateRequest struct {
	Text string `json:"text"`
}

// HandleGenerate serves POST /api/generate.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var in generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
			return
		}
		if !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
			return
		}
		// An empty body is treated like a missing text field.
	}

	res, err := h.gen.Generate(r.Context(), in.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a pipeline failure to its status and caller-safe message.
func (h *GenerateHandler) writeError(w http.ResponseWriter, err error) {
	e := apperr.From(err)
	status := e.Kind.Status()
	if status >= http.StatusInternalServerError {
		h.log.Error("generate failed", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: e.Public()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
