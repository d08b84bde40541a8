package configfx

import (
	"go.uber.org/fx"

	"wayfare/internal/config"
)

var Module = fx.Provide(
	config.Load)
