// Command gateway serves the mind map HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mindmapgen/internal/gateway/app"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:          "gateway",
		Short:        "Serve the mind map HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configFile)
		},
	}
	root.Flags().StringVar(&configFile, "config", "", "config file (default: ./mindmap.yaml when present)")
	return root
}

// serve runs the server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, configFile string) error {
	a, err := app.New(configFile)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	logger := a.Logger()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Start() }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("Server error", zap.Error(serveErr))
		}
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		if serveErr == nil {
			serveErr = err
		}
	}
	logger.Info("Server exiting")
	return serveErr
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
