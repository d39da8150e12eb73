package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/starvault/casebot/internal/app/storage"
)

// slidingWindowScript prunes entries older than the window, adds the new
// event, sets the key's expiry, and returns the surviving count — all
// atomically, so concurrent incrementers for the same key never race.
const slidingWindowScript = `
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return redis.call('ZCARD', KEYS[1])
`

// VelocityStore is the Redis-backed sliding-window counter store, using a
// sorted set per key (member = event, score = timestamp) pruned on read.
type VelocityStore struct {
	client *redis.Client
	prefix string
	window *redis.Script
}

// NewVelocityStore returns a VelocityStore keyed under prefix.
func NewVelocityStore(client *redis.Client, prefix string) *VelocityStore {
	return &VelocityStore{client: client, prefix: prefix, window: redis.NewScript(slidingWindowScript)}
}

var _ storage.VelocityStore = (*VelocityStore)(nil)

// Increment records one event for key at now and returns the surviving
// count inside the trailing window.
func (s *VelocityStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	fullKey := s.prefix + ":velocity:" + key
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()
	member := fmt.Sprintf("%d-%d", nowMs, now.UnixNano())

	return s.window.Run(ctx, s.client, []string{fullKey}, cutoff, nowMs, member, window.Milliseconds()).Int64()
}

// Distinct records (subject, token) at now and returns the number of
// distinct tokens seen for subject within ttl.
func (s *VelocityStore) Distinct(ctx context.Context, subject, token string, now time.Time, ttl time.Duration) (int64, error) {
	fullKey := s.prefix + ":distinct:" + subject
	nowMs := now.UnixMilli()
	cutoff := nowMs - ttl.Milliseconds()

	return s.window.Run(ctx, s.client, []string{fullKey}, cutoff, nowMs, token, ttl.Milliseconds()).Int64()
}
