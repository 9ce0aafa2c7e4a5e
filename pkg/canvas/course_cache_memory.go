package canvas

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// CourseCacheMemory caches course lists in process
type CourseCacheMemory struct {
	Cache *lru.Cache
	now   func() time.Time
}

type courseCacheEntry struct {
	courses []Course
	expires time.Time
}

// NewCourseCacheMemory initializes a new CourseCacheMemory
func NewCourseCacheMemory() (*CourseCacheMemory, error) {
	cache, err := lru.New(100)
	if err != nil {
		return nil, err
	}

	return &CourseCacheMemory{
		Cache: cache,
		now:   time.Now,
	}, nil
}

// Add adds a course list to the cache
func (c *CourseCacheMemory) Add(_ context.Context, key string, courses []Course) error {
	_ = c.Cache.Add(key, courseCacheEntry{
		courses: append([]Course{}, courses...),
		expires: c.now().Add(CourseCacheTTL),
	})
	return nil
}

// Invalidate removes a course list from the cache
func (c *CourseCacheMemory) Invalidate(_ context.Context, key string) error {
	c.Cache.Remove(key)
	return nil
}

// Get retrieves a course list from the cache
func (c *CourseCacheMemory) Get(_ context.Context, key string) ([]Course, error) {
	result, ok := c.Cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}

	entry, ok := result.(courseCacheEntry)
	if !ok || !c.now().Before(entry.expires) {
		c.Cache.Remove(key)
		return nil, ErrCacheMiss
	}

	return append([]Course{}, entry.courses...), nil
}
