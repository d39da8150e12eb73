// Package ratelimiter implements the token-bucket algorithm (C2) against a
// pluggable storage.BucketStore.
package ratelimiter

import (
	"context"
	"math"
	"time"

	core "github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/storage"
)

// Limiter evaluates tryConsume decisions for rate-limit keys against a store.
type Limiter struct {
	store storage.BucketStore
	clock core.Clock
}

// New returns a Limiter backed by store, using clk for "now".
func New(store storage.BucketStore, clk core.Clock) *Limiter {
	return &Limiter{store: store, clock: clk}
}

// TryConsume executes §4.1's algorithm atomically for key via the store's
// compute primitive.
func (l *Limiter) TryConsume(ctx context.Context, key ratelimit.Key, params ratelimit.Params, cost float64) (ratelimit.Decision, error) {
	if cost <= 0 {
		cost = 1
	}
	now := l.clock.Now()
	nowMs := now.UnixMilli()

	return l.store.Compute(ctx, key.String(), time.Duration(params.TTLSec)*time.Second, now, func(prior *ratelimit.State, _ int64) (ratelimit.State, ratelimit.Decision) {
		tokens := params.InitialTokens
		updatedAt := nowMs
		if prior != nil && nowMs <= prior.ExpiresAtMs {
			tokens = prior.Tokens
			updatedAt = prior.UpdatedAtMs
		}

		elapsedSec := math.Max(0, float64(nowMs-updatedAt)/1000.0)
		tokens = math.Min(params.Capacity, tokens+elapsedSec*params.RefillPerSec)

		var decision ratelimit.Decision
		if cost > params.Capacity {
			decision = ratelimit.Decision{
				Allowed:       false,
				RetryAfterSec: ratelimit.MaxRetryAfterSec,
			}
		} else if tokens >= cost {
			tokens -= cost
			decision = ratelimit.Decision{Allowed: true}
		} else {
			retryAfter := int64(ratelimit.MaxRetryAfterSec)
			if params.RefillPerSec > 0 {
				retryAfter = int64(math.Ceil((cost - tokens) / params.RefillPerSec))
				if retryAfter < 1 {
					retryAfter = 1
				}
				if retryAfter > ratelimit.MaxRetryAfterSec {
					retryAfter = ratelimit.MaxRetryAfterSec
				}
			}
			decision = ratelimit.Decision{Allowed: false, RetryAfterSec: retryAfter}
		}

		decision.Remaining = int64(math.Floor(tokens))
		decision.ResetAtMs = oneYearFallback(nowMs)
		if params.RefillPerSec > 0 {
			decision.ResetAtMs = nowMs + int64(math.Ceil((params.Capacity-tokens)/params.RefillPerSec))*1000
		}

		next := ratelimit.State{
			Tokens:      tokens,
			UpdatedAtMs: nowMs,
			ExpiresAtMs: nowMs + params.TTLSec*1000,
		}
		return next, decision
	})
}

func oneYearFallback(nowMs int64) int64 {
	return nowMs + int64(365*24*time.Hour/time.Millisecond)
}
