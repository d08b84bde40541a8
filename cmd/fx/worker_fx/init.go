package workerfx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfare/internal/repositories"
	"wayfare/internal/services"
)

var Module = fx.Provide(
	provideWorker)

func provideWorker(
	jobs repositories.JobRepository,
	queue repositories.JobQueueRepository,
	planner services.ItineraryPlannerInterface,
	logger *zap.Logger,
) services.PlanningWorkerInterface {
	return services.NewPlanningWorker(jobs, queue, planner, logger)
}
