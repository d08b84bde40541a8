package jobsfx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wayfare/internal/config"
	"wayfare/internal/repositories"
	"wayfare/internal/services"
)

var Module = fx.Provide(
	provideJobRepo, provideJobService)

func provideJobRepo(db *gorm.DB) repositories.JobRepository {
	return repositories.NewJobRepository(db)
}

func provideJobService(
	jobs repositories.JobRepository,
	queue repositories.JobQueueRepository,
	cfg *config.Config,
	logger *zap.Logger,
) services.ItineraryJobServiceInterface {
	return services.NewItineraryJobService(jobs, queue, cfg.Queue, logger)
}
