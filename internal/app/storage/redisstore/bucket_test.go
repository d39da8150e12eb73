package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/starvault/casebot/internal/app/domain/ratelimit"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func computeBucket(capacity, refillPerSec, cost float64) func(prior *ratelimit.State, nowMs int64) (ratelimit.State, ratelimit.Decision) {
	return func(prior *ratelimit.State, nowMs int64) (ratelimit.State, ratelimit.Decision) {
		tokens := capacity
		updatedAt := nowMs
		if prior != nil {
			tokens = prior.Tokens
			updatedAt = prior.UpdatedAtMs
		}
		elapsed := float64(nowMs-updatedAt) / 1000.0
		if elapsed < 0 {
			elapsed = 0
		}
		tokens += elapsed * refillPerSec
		if tokens > capacity {
			tokens = capacity
		}
		allowed := tokens >= cost
		if allowed {
			tokens -= cost
		}
		next := ratelimit.State{Tokens: tokens, UpdatedAtMs: nowMs, ExpiresAtMs: nowMs + 60_000}
		return next, ratelimit.Decision{Allowed: allowed}
	}
}

func TestBucketStore_ConsumeAndRefill(t *testing.T) {
	client := newTestClient(t)
	s := NewBucketStore(client, "test")
	ctx := context.Background()
	now := time.Unix(1000, 0)

	d, err := s.Compute(ctx, "ip:1.2.3.4", 60*time.Second, now, computeBucket(5, 1, 5))
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = s.Compute(ctx, "ip:1.2.3.4", 60*time.Second, now, computeBucket(5, 1, 1))
	require.NoError(t, err)
	require.False(t, d.Allowed, "bucket should be empty immediately after full draw")

	later := now.Add(3 * time.Second)
	d, err = s.Compute(ctx, "ip:1.2.3.4", 60*time.Second, later, computeBucket(5, 1, 1))
	require.NoError(t, err)
	require.True(t, d.Allowed, "3 tokens should have refilled after 3s at 1/s")
}

func TestBucketStore_IndependentKeys(t *testing.T) {
	client := newTestClient(t)
	s := NewBucketStore(client, "test")
	ctx := context.Background()
	now := time.Unix(1000, 0)

	d1, err := s.Compute(ctx, "ip:1.1.1.1", 60*time.Second, now, computeBucket(1, 1, 1))
	require.NoError(t, err)
	d2, err := s.Compute(ctx, "ip:2.2.2.2", 60*time.Second, now, computeBucket(1, 1, 1))
	require.NoError(t, err)
	require.True(t, d1.Allowed)
	require.True(t, d2.Allowed, "separate keys must not share bucket state")
}
