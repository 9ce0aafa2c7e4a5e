package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
)

// Cached is a read-through LRU in front of a slower Interface. Writes go to the backend first and update the
// cache only on success.
type Cached struct {
	Backend Interface
	Cache   *lru.Cache
}

type cachedValue struct {
	value string
	ok    bool
}

// NewCached wraps backend with an LRU of the given size
func NewCached(backend Interface, size int) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &Cached{
		Backend: backend,
		Cache:   cache,
	}, nil
}

// Get serves key from the cache if present, otherwise from the backend
func (c *Cached) Get(ctx context.Context, key string) (string, bool, error) {
	if result, ok := c.Cache.Get(key); ok {
		if entry, ok := result.(cachedValue); ok {
			return entry.value, entry.ok, nil
		}
	}

	value, ok, err := c.Backend.Get(ctx, key)
	if err != nil {
		return "", false, err
	}

	c.Cache.Add(key, cachedValue{value: value, ok: ok})
	return value, ok, nil
}

// Set writes through to the backend
func (c *Cached) Set(ctx context.Context, key string, value string) error {
	err := c.Backend.Set(ctx, key, value)
	if err != nil {
		c.Cache.Remove(key)
		return err
	}

	c.Cache.Add(key, cachedValue{value: value, ok: true})
	return nil
}

// Remove deletes key from the backend and the cache
func (c *Cached) Remove(ctx context.Context, key string) error {
	c.Cache.Remove(key)
	return c.Backend.Remove(ctx, key)
}
