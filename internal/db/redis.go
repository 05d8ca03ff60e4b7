package db

import (
	"backend-yatube/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client only when the feed cache is configured to
// live in redis; the in-process backend needs no connection.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" || cfg.CacheBackend != config.CacheBackendRedis {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
