// Package logging builds the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"

	"pcbuild-backend/internal/config"
)

// New creates a logger from the log section of the app config.
// An unparseable level falls back to info.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "pcbuild")), nil
}

// Must is New for process startup: on error it returns a production logger
// so the failure itself can still be reported.
func Must(cfg config.LogConfig) *zap.Logger {
	logger, err := New(cfg)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Warn("Falling back to default logger", zap.Error(err))
		return fallback
	}
	return logger
}
