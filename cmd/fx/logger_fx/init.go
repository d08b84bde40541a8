package loggerfx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfare/internal/config"
	"wayfare/pkg/logger"
)

var Module = fx.Provide(
	provideLogger)

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Log.Level)
}
