// Package cache holds rendered payloads for a fixed time-to-live.
//
// Entries are only ever replaced by expiry: writes to the underlying data
// never purge them, so a reader may see a payload up to one TTL old.
package cache

import (
	"context"
	"errors"
	"time"

	"backend-yatube/internal/config"

	"github.com/redis/go-redis/v9"
)

// Cache is a key-value store whose TTL is fixed when it is constructed.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	TTL() time.Duration
}

// New picks the backend named by cfg.CacheBackend. The redis backend needs a
// client; without one it falls back to the in-process cache.
func New(cfg config.Config, rdb *redis.Client) Cache {
	if cfg.CacheBackend == config.CacheBackendRedis && rdb != nil {
		return NewRedisCache(rdb, cfg.FeedCacheTTL)
	}
	return NewMemoryCache(defaultMemorySize, cfg.FeedCacheTTL)
}

// Remember returns the payload cached under key, or computes, stores and
// returns it. A failing backend never fails the caller: compute's result is
// returned and any read or write error is reported alongside it.
func Remember(ctx context.Context, c Cache, key string, compute func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	cached, ok, getErr := c.Get(ctx, key)
	if getErr == nil && ok {
		return cached, true, nil
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	return payload, false, errors.Join(getErr, c.Set(ctx, key, payload))
}
