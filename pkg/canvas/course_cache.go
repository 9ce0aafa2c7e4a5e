package canvas

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CourseCacheTTL is how long a course list is served from the cache
const CourseCacheTTL = 10 * time.Minute

// ErrCacheMiss is returned when a course list is not cached
var ErrCacheMiss = errors.New("course list not cached")

// CourseCacheInterface caches course lists per Canvas account
type CourseCacheInterface interface {
	Add(ctx context.Context, key string, courses []Course) error
	Invalidate(ctx context.Context, key string) error
	Get(ctx context.Context, key string) ([]Course, error)
}

// courseCacheKey identifies an account without putting the token into the key
func courseCacheKey(config Config) string {
	return "courses:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(config.URL+"\n"+config.Token)).String()
}
