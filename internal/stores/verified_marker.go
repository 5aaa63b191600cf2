package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const verifiedValue = "Verified"

// VerifiedMarker records that an identity proved email ownership during signup.
type VerifiedMarker struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewVerifiedMarker creates a marker store whose entries live for ttl.
func NewVerifiedMarker(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *VerifiedMarker {
	return &VerifiedMarker{redis: redisClient, prefix: prefix, ttl: ttl}
}

func (m *VerifiedMarker) key(purpose, identity string) string {
	return m.prefix + "otp:" + purpose + ":verified:" + identity
}

// Mark sets the marker for identity.
func (m *VerifiedMarker) Mark(ctx context.Context, purpose, identity string) error {
	if err := m.redis.Set(ctx, m.key(purpose, identity), verifiedValue, m.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsVerified reports whether a live marker exists for identity.
func (m *VerifiedMarker) IsVerified(ctx context.Context, purpose, identity string) (bool, error) {
	val, err := m.redis.Get(ctx, m.key(purpose, identity)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return val == verifiedValue, nil
}

// Consume deletes the marker. It reports whether a marker was present.
func (m *VerifiedMarker) Consume(ctx context.Context, purpose, identity string) (bool, error) {
	n, err := m.redis.Del(ctx, m.key(purpose, identity)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}
