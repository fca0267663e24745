package sentinel

import (
	"context"
	"fmt"

	"github.com/oshokin/garage-sentinel/internal/config"
	"github.com/oshokin/garage-sentinel/internal/logger"
)

// configureLogger applies the level and, when configured, installs a logger
// that also writes to rotating files.
func configureLogger(ctx context.Context, cfg config.Logging) error {
	if cfg.Level != "" {
		level, ok := logger.ParseLogLevel(cfg.Level)
		if !ok {
			logger.WarnKV(ctx, "Unknown log level, keeping current", "level", cfg.Level)
		} else {
			logger.SetLevel(level)
		}
	}

	if cfg.File == "" {
		return nil
	}

	sink, err := logger.OpenRotatingFile(cfg.File, cfg.MaxAge, cfg.RotationTime)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	logger.SetLogger(logger.NewWithFile(nil, sink))

	return nil
}
