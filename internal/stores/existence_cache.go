package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExistenceCache is a cache-aside memo of "does an account exist for this
// identity". The durable store stays authoritative; writers evict.
type ExistenceCache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewExistenceCache creates a cache whose entries live for ttl. A zero ttl
// disables the cache.
func NewExistenceCache(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *ExistenceCache {
	return &ExistenceCache{redis: redisClient, prefix: prefix, ttl: ttl}
}

func (c *ExistenceCache) key(identity string) string {
	return c.prefix + "exists:user:" + identity
}

// Lookup returns the cached answer. hit is false on a miss.
func (c *ExistenceCache) Lookup(ctx context.Context, identity string) (exists, hit bool, err error) {
	if c == nil || c.ttl <= 0 {
		return false, false, nil
	}

	val, err := c.redis.Get(ctx, c.key(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return val == "1", true, nil
}

// Store caches exists for identity.
func (c *ExistenceCache) Store(ctx context.Context, identity string, exists bool) error {
	if c == nil || c.ttl <= 0 {
		return nil
	}

	val := "0"
	if exists {
		val = "1"
	}
	if err := c.redis.Set(ctx, c.key(identity), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Evict drops the cached answer for identity.
func (c *ExistenceCache) Evict(ctx context.Context, identity string) error {
	if c == nil || c.ttl <= 0 {
		return nil
	}

	if err := c.redis.Del(ctx, c.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
