package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubInspector struct {
	valid     map[string]bool
	remaining map[string]time.Duration
	leeway    time.Duration
}

func (s stubInspector) Validate(token string) bool { return s.valid[token] }

func (s stubInspector) RemainingValidity(token string) time.Duration { return s.remaining[token] }

func (s stubInspector) Leeway() time.Duration { return s.leeway }

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestRevokeSetsSelfExpiringEntry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inspector := stubInspector{
		valid:     map[string]bool{"tok": true},
		remaining: map[string]time.Duration{"tok": 90 * time.Second},
	}
	reg := NewRegistry(rdb, "t:", inspector)
	ctx := context.Background()

	written, err := reg.Revoke(ctx, "tok")
	if err != nil || !written {
		t.Fatalf("revoke: written=%v err=%v", written, err)
	}

	revoked, err := reg.IsRevoked(ctx, "tok")
	if err != nil || !revoked {
		t.Fatalf("expected token revoked, got %v err=%v", revoked, err)
	}
	if ttl := mr.TTL(reg.key("tok")); ttl <= 0 || ttl > 90*time.Second {
		t.Fatalf("unexpected TTL %v", ttl)
	}

	mr.FastForward(91 * time.Second)
	revoked, err = reg.IsRevoked(ctx, "tok")
	if err != nil || revoked {
		t.Fatalf("expected entry to self-expire, got %v err=%v", revoked, err)
	}
}

func TestRevokeRejectsInvalidToken(t *testing.T) {
	_, rdb := newTestRedis(t)
	reg := NewRegistry(rdb, "", stubInspector{})

	if _, err := reg.Revoke(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
	if _, err := reg.Revoke(context.Background(), "forged"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for invalid token, got %v", err)
	}
}

func TestRevokeExpiredIsNoOp(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inspector := stubInspector{valid: map[string]bool{"tok": true}, remaining: map[string]time.Duration{"tok": 0}}
	reg := NewRegistry(rdb, "", inspector)

	written, err := reg.Revoke(context.Background(), "tok")
	if err != nil || written {
		t.Fatalf("expected no-op, written=%v err=%v", written, err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", mr.Keys())
	}
}

func TestRevokeCoversVerifierLeeway(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inspector := stubInspector{
		valid:     map[string]bool{"tok": true, "grace": true},
		remaining: map[string]time.Duration{"tok": 10 * time.Second, "grace": 0},
		leeway:    time.Minute,
	}
	reg := NewRegistry(rdb, "", inspector)
	ctx := context.Background()

	if written, err := reg.Revoke(ctx, "tok"); err != nil || !written {
		t.Fatalf("revoke: written=%v err=%v", written, err)
	}
	if ttl := mr.TTL(reg.key("tok")); ttl <= time.Minute || ttl > 70*time.Second {
		t.Fatalf("expected TTL to include leeway, got %v", ttl)
	}

	mr.FastForward(20 * time.Second)
	if revoked, err := reg.IsRevoked(ctx, "tok"); err != nil || !revoked {
		t.Fatalf("expected token still revoked inside leeway, got %v err=%v", revoked, err)
	}

	// Past exp but still accepted by the verifier.
	if written, err := reg.Revoke(ctx, "grace"); err != nil || !written {
		t.Fatalf("revoke within leeway: written=%v err=%v", written, err)
	}
}

func TestRegistryReportsStoreFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inspector := stubInspector{valid: map[string]bool{"tok": true}, remaining: map[string]time.Duration{"tok": time.Minute}}
	reg := NewRegistry(rdb, "", inspector)
	mr.Close()

	if _, err := reg.Revoke(context.Background(), "tok"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := reg.IsRevoked(context.Background(), "tok"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
