package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemorySize = 128

// MemoryCache keeps payloads in process memory.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
	ttl time.Duration
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size < 1 {
		size = defaultMemorySize
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
		ttl: ttl,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	payload, ok := m.lru.Get(key)
	return payload, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *MemoryCache) TTL() time.Duration { return m.ttl }
