package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"
)

// MemoryCache is an in-process LRU.
type MemoryCache struct {
	lru gcache.Cache
}

func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = 1
	}
	return &MemoryCache{lru: gcache.New(size).LRU().Build()}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, err := c.lru.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

// Set stores value; a non-positive ttl keeps it until evicted.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := append([]byte(nil), value...)
	if ttl > 0 {
		return c.lru.SetWithExpire(key, stored, ttl)
	}
	return c.lru.Set(key, stored)
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.lru.Len(true)
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
