package limiters

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowConfig configures a fixed request window.
type WindowConfig struct {
	Prefix      string
	Window      time.Duration
	MaxRequests int
}

// incrementWindowLua increments KEYS[1] and attaches the window TTL only on
// the 0 -> 1 transition, so later hits never extend the window.
// ARGV[1] = window in milliseconds
var incrementWindowLua = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RequestLimiter counts OTP requests per purpose and identity.
type RequestLimiter struct {
	redis  redis.UniversalClient
	config WindowConfig
}

// NewRequestLimiter creates a limiter backed by redisClient.
func NewRequestLimiter(redisClient redis.UniversalClient, cfg WindowConfig) *RequestLimiter {
	return &RequestLimiter{redis: redisClient, config: cfg}
}

func (l *RequestLimiter) key(purpose, identity string) string {
	return l.config.Prefix + "otp:" + purpose + ":requests:" + identity
}

// Hit records one request and returns the count inside the current window.
// It returns ErrRequestLimited once the count exceeds MaxRequests.
func (l *RequestLimiter) Hit(ctx context.Context, purpose, identity string) (int64, error) {
	if l == nil {
		return 0, nil
	}

	count, err := incrementWindowLua.Run(ctx, l.redis, []string{l.key(purpose, identity)}, l.config.Window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if count > int64(l.config.MaxRequests) {
		return count, ErrRequestLimited
	}
	return count, nil
}

// Count returns the current window count without incrementing it.
func (l *RequestLimiter) Count(ctx context.Context, purpose, identity string) (int64, error) {
	if l == nil {
		return 0, nil
	}

	count, err := l.redis.Get(ctx, l.key(purpose, identity)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return count, nil
}
