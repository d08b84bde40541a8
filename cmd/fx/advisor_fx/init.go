package advisorfx

import (
	"go.uber.org/fx"

	"wayfare/internal/config"
	"wayfare/internal/providers"
)

var Module = fx.Provide(
	provideAdvisor, provideEmbeddingRanker)

func provideAdvisor(cfg *config.Config) (providers.PlanningAdvisorInterface, error) {
	return providers.NewPlanningAdvisor(cfg.Advisor.Provider, cfg.Advisor.APIKey, cfg.Advisor.Model)
}

func provideEmbeddingRanker(cfg *config.Config) providers.EmbeddingRankerInterface {
	return providers.NewEmbeddingRanker(cfg.Advisor.APIKey, cfg.Advisor.EmbeddingModel)
}
