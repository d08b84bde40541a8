package plannerfx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfare/internal/config"
	"wayfare/internal/providers"
	"wayfare/internal/services"
)

var Module = fx.Provide(
	provideBalancer, providePlanner)

func provideBalancer(logger *zap.Logger) services.InterestBalancerInterface {
	return services.NewInterestBalancer(logger)
}

func providePlanner(
	maps providers.MapProviderInterface,
	advisor providers.PlanningAdvisorInterface,
	ranker providers.EmbeddingRankerInterface,
	balancer services.InterestBalancerInterface,
	cfg *config.Config,
	logger *zap.Logger,
) services.ItineraryPlannerInterface {
	return services.NewPlannerService(maps, advisor, ranker, balancer, cfg.Planner, logger)
}
