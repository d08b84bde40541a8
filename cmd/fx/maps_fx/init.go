package mapsfx

import (
	"go.uber.org/fx"

	"wayfare/internal/config"
	"wayfare/internal/providers"
)

var Module = fx.Provide(
	provideMapProvider)

func provideMapProvider(cfg *config.Config) providers.MapProviderInterface {
	return providers.NewAzureMapsProvider(cfg.Maps)
}
