package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "yatube:cache:%s" // <key>

func redisKey(key string) string {
	return fmt.Sprintf(redisKeyPrefix, key)
}

// RedisCache stores payloads as plain redis strings with an expiry.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := r.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, redisKey(key), value, r.ttl).Err()
}

func (r *RedisCache) TTL() time.Duration { return r.ttl }
