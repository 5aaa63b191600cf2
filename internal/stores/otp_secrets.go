package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPSecretStore keeps the HMAC digest of the most recently issued code per
// purpose and identity.
type OTPSecretStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewOTPSecretStore creates a store under prefix.
func NewOTPSecretStore(redisClient redis.UniversalClient, prefix string) *OTPSecretStore {
	return &OTPSecretStore{redis: redisClient, prefix: prefix}
}

func (s *OTPSecretStore) hashKey(purpose, identity string) string {
	return s.prefix + "otp:" + purpose + ":hash:" + identity
}

func (s *OTPSecretStore) attemptsKey(purpose, identity string) string {
	return s.prefix + "otp:" + purpose + ":attempts:" + identity
}

// Put stores digest with ttl and drops any stale attempt counter in the same
// MULTI block.
func (s *OTPSecretStore) Put(ctx context.Context, purpose, identity, digest string, ttl time.Duration) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.hashKey(purpose, identity), digest, ttl)
		pipe.Del(ctx, s.attemptsKey(purpose, identity))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the stored digest. ok is false once the entry has expired.
func (s *OTPSecretStore) Get(ctx context.Context, purpose, identity string) (digest string, ok bool, err error) {
	digest, err = s.redis.Get(ctx, s.hashKey(purpose, identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return digest, true, nil
}

// Delete removes the digest.
func (s *OTPSecretStore) Delete(ctx context.Context, purpose, identity string) error {
	if err := s.redis.Del(ctx, s.hashKey(purpose, identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
