package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownMarker stores the epoch-millisecond timestamp of the last OTP
// issuance. The marker expires together with the cooldown.
type CooldownMarker struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCooldownMarker creates a marker store with the given cooldown.
func NewCooldownMarker(redisClient redis.UniversalClient, prefix string, cooldown time.Duration) *CooldownMarker {
	return &CooldownMarker{redis: redisClient, prefix: prefix, ttl: cooldown}
}

func (c *CooldownMarker) key(purpose, identity string) string {
	return c.prefix + "otp:" + purpose + ":cooldown:" + identity
}

// LastIssued returns the recorded issuance time. ok is false when no marker
// exists (never issued, or the cooldown already elapsed).
func (c *CooldownMarker) LastIssued(ctx context.Context, purpose, identity string) (at time.Time, ok bool, err error) {
	if c == nil {
		return time.Time{}, false, nil
	}

	raw, err := c.redis.Get(ctx, c.key(purpose, identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// A corrupt marker is dropped rather than trusted.
		_ = c.redis.Del(ctx, c.key(purpose, identity)).Err()
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// Mark records at as the latest issuance.
func (c *CooldownMarker) Mark(ctx context.Context, purpose, identity string, at time.Time) error {
	if c == nil || c.ttl <= 0 {
		return nil
	}

	if err := c.redis.Set(ctx, c.key(purpose, identity), strconv.FormatInt(at.UnixMilli(), 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

// Remaining returns how long a caller must still wait given the last issuance,
// truncated to whole seconds the way it is reported to users:
// cooldown - floor(elapsed seconds), never below one second while the
// cooldown is active. Zero means the cooldown has elapsed.
func Remaining(cooldown time.Duration, last, now time.Time) time.Duration {
	elapsed := now.Sub(last)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= cooldown {
		return 0
	}
	elapsedSeconds := elapsed / time.Second
	wait := cooldown/time.Second - elapsedSeconds
	if wait <= 0 {
		wait = 1
	}
	return wait * time.Second
}
