package queuefx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfare/internal/config"
	"wayfare/internal/infra"
	"wayfare/internal/repositories"
)

var Module = fx.Provide(
	provideRedisClient, provideJobQueue)

func provideRedisClient(cfg *config.Config) *redis.Client {
	return infra.InitRedis(cfg.Redis)
}

func provideJobQueue(client *redis.Client, cfg *config.Config, logger *zap.Logger) repositories.JobQueueRepository {
	return repositories.NewJobQueueRepository(client, cfg.Queue, logger)
}
