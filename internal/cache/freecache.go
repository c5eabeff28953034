package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coocood/freecache"
)

const megabyte = 1024 * 1024

// FreeCache is an in-process Cache.
type FreeCache struct {
	cache *freecache.Cache
}

// NewFreeCache creates a cache of sizeMB megabytes; freecache enforces a
// minimum of 512KB.
func NewFreeCache(sizeMB int) *FreeCache {
	return &FreeCache{
		cache: freecache.NewCache(sizeMB * megabyte),
	}
}

func (c *FreeCache) Get(_ context.Context, key string) ([]byte, error) {
	value, err := c.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("freecache get %s: %w", key, err)
	}
	return value, nil
}

func (c *FreeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	expireSeconds := 0
	if ttl > 0 {
		expireSeconds = max(int(ttl.Seconds()), 1)
	}
	if err := c.cache.Set([]byte(key), value, expireSeconds); err != nil {
		return fmt.Errorf("freecache set %s: %w", key, err)
	}
	return nil
}

func (c *FreeCache) Delete(_ context.Context, key string) error {
	c.cache.Del([]byte(key))
	return nil
}

func (c *FreeCache) Clear(_ context.Context) error {
	c.cache.Clear()
	return nil
}
