package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mindmapgen/internal/gateway/config"
	"mindmapgen/internal/gateway/handler"
	"mindmapgen/internal/gateway/server"
	"mindmapgen/internal/observability"
)

type App struct {
	server   *server.Server
	pipeline *Pipeline
	logger   *zap.Logger
}

// New loads configuration and builds the HTTP service.
func New(configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return NewWithConfig(context.Background(), cfg, logger)
}

func NewWithConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics := observability.NewCollector("mindmap")
	p, err := NewPipeline(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	generateHandler := handler.NewGenerateHandler(p.Generator, logger)
	router := server.NewRouter(generateHandler, metrics.Handler(), logger)
	srv := server.New(cfg.Port, router, logger)

	return &App{server: srv, pipeline: p, logger: logger}, nil
}

func (a *App) Logger() *zap.Logger { return a.logger }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.pipeline.Close(); err == nil {
		err = cerr
	}
	_ = a.logger.Sync()
	return err
}
