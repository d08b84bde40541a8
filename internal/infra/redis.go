package infra

import (
	"github.com/redis/go-redis/v9"

	"wayfare/internal/config"
)

func InitRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
