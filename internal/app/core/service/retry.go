package service

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy governs retry behavior for outbound calls. Matches §5's
// "jittered exponential backoff" resource policy.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy preserves single-attempt, no-backoff behavior for
// call sites that don't want retries.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:       1,
	InitialBackoff: 0,
	MaxBackoff:     0,
	Multiplier:     1,
}

// OutboundRetryPolicy is the policy used for the Telegram client facade and
// the refund path: base 200ms, factor 2, cap 5s, 3 attempts (§5, §4.8).
var OutboundRetryPolicy = RetryPolicy{
	Attempts:       3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	Multiplier:     2,
}

// Retry executes fn with the provided policy, sleeping a jittered backoff
// between attempts. It returns the last error, if any. shouldRetry lets the
// caller distinguish retryable failures (network, 5xx) from permanent ones
// (4xx) — see §7's TransientRemote/PermanentRemote taxonomy; a nil
// shouldRetry retries every error.
func Retry(ctx context.Context, policy RetryPolicy, shouldRetry func(error) bool, fn func() error) error {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 1
	}
	backoff := policy.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == policy.Attempts {
			return lastErr
		}
		if backoff > 0 {
			jittered := time.Duration(float64(backoff) * (0.5 + rand.Float64()*0.5))
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				return ctx.Err()
			}
			next := time.Duration(float64(backoff) * policy.Multiplier)
			if policy.MaxBackoff > 0 && next > policy.MaxBackoff {
				next = policy.MaxBackoff
			}
			backoff = next
		}
	}
	return lastErr
}
