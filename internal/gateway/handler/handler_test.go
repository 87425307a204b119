package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmapgen/internal/apperr"
	"mindmapgen/internal/types"
)

type stubGenerator struct {
	res  *types.GenerationResult
	err  error
	got  string
	seen bool
}

func (s *stubGenerator) Generate(_ context.Context, text string) (*types.GenerationResult, error) {
	s.got = text
	s.seen = true
	return s.res, s.err
}

func post(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestGenerateOK(t *testing.T) {
	gen := &stubGenerator{res: &types.GenerationResult{
		KeyPoints: []string{"solar"},
		MindMap: types.MindMap{
			Nodes: []types.Node{{ID: "1", Data: types.NodeData{Label: "Energy"}, Style: &types.NodeStyle{BackgroundColor: "#A1B2C3", Color: "#333333", Opacity: 0.4}}},
			Edges: []types.Edge{},
		},
	}}
	rec := post(t, NewGenerateHandler(gen, nil).HandleGenerate, `{"text":"Renewable energy comes from the sun."}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Renewable energy comes from the sun.", gen.got)

	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Contains(t, out, "key_points")
	mm := out["mindmap"].(map[string]any)
	node := mm["nodes"].([]any)[0].(map[string]any)
	assert.Equal(t, "#A1B2C3", node["style"].(map[string]any)["backgroundColor"])
	assert.Equal(t, []any{}, mm["edges"])
}

func TestGenerateInvalidBody(t *testing.T) {
	gen := &stubGenerator{}
	rec := post(t, NewGenerateHandler(gen, nil).HandleGenerate, "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec))
	assert.False(t, gen.seen)
}

func TestGenerateBodyTooLarge(t *testing.T) {
	gen := &stubGenerator{}
	body := `{"text":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	rec := post(t, NewGenerateHandler(gen, nil).HandleGenerate, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, gen.seen)
}

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"empty", apperr.New(apperr.EmptyInput, "Text is required"), http.StatusBadRequest, "Text is required"},
		{"too long", apperr.New(apperr.TooLong, "Text exceeds maximum length of 4000 characters"), http.StatusBadRequest, "Text exceeds maximum length of 4000 characters"},
		{"unavailable", apperr.Wrap(apperr.GenerationUnavailable, "generation failed", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "Generation service unavailable"},
		{"empty generation", apperr.New(apperr.EmptyGeneration, "model returned no text"), http.StatusBadGateway, "No text returned from model"},
		{"malformed", apperr.Wrap(apperr.MalformedJSON, "output is not valid JSON", errors.New("invalid character 'o'")), http.StatusBadGateway, "Invalid JSON output"},
		{"structure", apperr.New(apperr.InvalidStructure, `mindmap.edges[0].target: unknown node "9"`), http.StatusBadGateway, "Invalid mindmap structure"},
		{"unclassified", errors.New("nil pointer"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, NewGenerateHandler(&stubGenerator{err: tc.err}, nil).HandleGenerate, `{"text":"anything at all"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeError(t, rec))
		})
	}
}

func TestGenerateMissingTextReachesValidator(t *testing.T) {
	gen := &stubGenerator{err: apperr.New(apperr.EmptyInput, "Text is required")}
	rec := post(t, NewGenerateHandler(gen, nil).HandleGenerate, `{}`)
	assert.True(t, gen.seen)
	assert.Equal(t, "", gen.got)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Text is required", decodeError(t, rec))
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
