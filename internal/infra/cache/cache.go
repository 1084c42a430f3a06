package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	Delete(ctx context.Context, key string)
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) (any, error)
}

// RistrettoCache is a TTL cache whose writes are visible to the next
// read. Loads of the same missing key are collapsed with singleflight.
type RistrettoCache struct {
	store       *ristretto.Cache
	singleGroup singleflight.Group
}

type CacheConfig struct {
	// MaxCost is the total cost budget; every entry costs 1.
	MaxCost     int64
	NumCounters int64
	BufferItems int64
}

// DefaultConfig is sized for a handful of keys on a small device.
func DefaultConfig() *CacheConfig {
	return &CacheConfig{
		MaxCost:     1 << 10,
		NumCounters: 1 << 14,
		BufferItems: 64,
	}
}

var _ Cache = (*RistrettoCache)(nil)

func New(config *CacheConfig) (*RistrettoCache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoCache{store: store}, nil
}

func (c *RistrettoCache) Get(ctx context.Context, key string) (any, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	return c.store.Get(key)
}

// Set stores value for ttl; a ttl of zero keeps it until evicted. It
// reports false when the write was dropped by admission.
func (c *RistrettoCache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	ok := c.store.SetWithTTL(key, value, 1, ttl)
	c.store.Wait()
	return ok
}

func (c *RistrettoCache) Delete(ctx context.Context, key string) {
	if ctx.Err() != nil {
		return
	}
	c.store.Del(key)
}

// GetOrSet returns the cached value for key, running loader at most once
// at a time per key on a miss.
func (c *RistrettoCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) (any, error) {
	if value, found := c.Get(ctx, key); found {
		return value, nil
	}

	value, err, _ := c.singleGroup.Do(key, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if value, found := c.Get(ctx, key); found {
			return value, nil
		}
		value, err := loader()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, value, ttl)
		return value, nil
	})
	return value, err
}

func (c *RistrettoCache) Close() {
	c.store.Close()
}
