package app

import (
	"fmt"

	"go.uber.org/zap"

	"mindmapgen/internal/diagnostics"
	"mindmapgen/internal/gateway/config"
)

// initDiagnostics returns the recorder for failed generations, or nil when
// diagnostics are disabled.
func initDiagnostics(cfg *config.Config, logger *zap.Logger) (*diagnostics.Recorder, error) {
	if !cfg.Diagnostics.Enabled {
		return nil, nil
	}
	s3Cfg := diagnostics.S3Config{
		Endpoint:  cfg.Diagnostics.Endpoint,
		Region:    cfg.Diagnostics.Region,
		AccessKey: cfg.Diagnostics.AccessKey,
		SecretKey: cfg.Diagnostics.SecretKey,
		Bucket:    cfg.Diagnostics.Bucket,
		UseSSL:    cfg.Diagnostics.UseSSL,
	}
	store, err := diagnostics.NewS3Store(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize diagnostics store: %w", err)
	}
	logger.Info("diagnostics store: s3",
		zap.String("bucket", s3Cfg.Bucket),
		zap.String("endpoint", s3Cfg.Endpoint))
	return diagnostics.NewRecorder(store, logger), nil
}
