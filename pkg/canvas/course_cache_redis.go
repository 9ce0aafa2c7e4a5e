package canvas

import (
	"context"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
)

// CourseCacheRedis caches course lists in Redis so all instances share them
type CourseCacheRedis struct {
	Cache *cache.Cache
}

// NewCourseCacheRedis initializes a new CourseCacheRedis
func NewCourseCacheRedis(redisClient *redis.Client) *CourseCacheRedis {
	return &CourseCacheRedis{
		Cache: cache.New(&cache.Options{
			Redis: redisClient,
		}),
	}
}

// Add adds a course list
func (c *CourseCacheRedis) Add(ctx context.Context, key string, courses []Course) error {
	return c.Cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: courses,
		TTL:   CourseCacheTTL,
	})
}

// Invalidate invalidates a course list
func (c *CourseCacheRedis) Invalidate(ctx context.Context, key string) error {
	err := c.Cache.Delete(ctx, key)
	if err == cache.ErrCacheMiss {
		return nil
	}

	return err
}

// Get retrieves a course list
func (c *CourseCacheRedis) Get(ctx context.Context, key string) ([]Course, error) {
	var courses []Course
	err := c.Cache.Get(ctx, key, &courses)
	if err == cache.ErrCacheMiss {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	return courses, nil
}
