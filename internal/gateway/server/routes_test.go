package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmapgen/internal/gateway/handler"
	"mindmapgen/internal/gateway/middleware"
	llmclient "mindmapgen/internal/llmClient"
	"mindmapgen/internal/observability"
	"mindmapgen/internal/pipeline"
	"mindmapgen/internal/types"
)

type panicky struct{}

func (panicky) Generate(context.Context, string) (*types.GenerationResult, error) {
	panic("boom")
}

func newTestRouter(t *testing.T) (http.Handler, *observability.Collector) {
	t.Helper()
	metrics := observability.NewCollector("mindmap")
	gen, err := pipeline.New(pipeline.Config{}, pipeline.Deps{
		Generator: llmclient.NewFakeClient(),
		Embedder:  llmclient.NewFakeEmbedder(32),
		Metrics:   metrics,
	})
	require.NoError(t, err)
	return NewRouter(handler.NewGenerateHandler(gen, nil), metrics.Handler(), zap.NewNop()), metrics
}

func TestRouterGenerate(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/generate", "application/json",
		strings.NewReader(`{"text":"Renewable energy comes from natural sources like solar, wind, and hydro power."}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestRouterRejectsEmptyText(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"text":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Text is required"}`, rec.Body.String())
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router, metrics := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	metrics.RecordOutcome("ok")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mindmap_requests_total{outcome="ok"} 1`)
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterRecoversPanics(t *testing.T) {
	router := NewRouter(handler.NewGenerateHandler(panicky{}, nil), nil, zap.NewNop())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"text":"x"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterWithoutLoggerOrMetrics(t *testing.T) {
	gen, err := pipeline.New(pipeline.Config{}, pipeline.Deps{
		Generator: llmclient.NewFakeClient(),
		Embedder:  llmclient.NewFakeEmbedder(32),
	})
	require.NoError(t, err)
	router := NewRouter(handler.NewGenerateHandler(gen, nil), nil, nil)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
