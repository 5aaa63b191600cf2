package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/bankAuth/internal"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnauthorized is returned by Revoke for a missing or invalid token.
	ErrUnauthorized = errors.New("token missing or invalid")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("revocation store unavailable")
)

const revokedMarker = "true"

// TokenInspector is the part of the token provider the registry depends on.
type TokenInspector interface {
	Validate(token string) bool
	RemainingValidity(token string) time.Duration
	Leeway() time.Duration
}

// Registry is safe for concurrent use.
type Registry struct {
	redis  redis.UniversalClient
	prefix string
	tokens TokenInspector
}

// NewRegistry creates a registry under prefix.
func NewRegistry(redisClient redis.UniversalClient, prefix string, tokens TokenInspector) *Registry {
	return &Registry{redis: redisClient, prefix: prefix, tokens: tokens}
}

func (r *Registry) key(token string) string {
	return r.prefix + "blacklist:" + internal.TokenKey(token)
}

// Revoke marks token as revoked until the verifier would stop accepting it,
// which is its expiry plus the verifier's leeway. written is false when the
// token has no acceptance window left, in which case nothing is stored.
func (r *Registry) Revoke(ctx context.Context, token string) (written bool, err error) {
	if token == "" || r.tokens == nil || !r.tokens.Validate(token) {
		return false, ErrUnauthorized
	}

	ttl := r.tokens.RemainingValidity(token) + r.tokens.Leeway()
	if ttl <= 0 {
		return false, nil
	}

	if err := r.redis.Set(ctx, r.key(token), revokedMarker, ttl).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return true, nil
}

// IsRevoked reports whether token has a live revocation entry.
func (r *Registry) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	n, err := r.redis.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}
