// Package redisstore implements the distributed C13 store variants for the
// token bucket (C2) and velocity counters (C3) against Redis, selected by
// configuration exactly like the memory/file/DB choice for the RNG store.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/storage"
)

// casScript performs an atomic compare-and-set: it only writes newVal (with
// a PEXPIRE of ttlMs) if the stored value still equals oldVal (or is absent
// and oldVal is empty), returning 1 on success and 0 on conflict. This is
// the "distributed atomic script" variant of the per-key mutex used by the
// in-memory store.
const casScript = `
local cur = redis.call('GET', KEYS[1])
if cur == false then cur = '' end
if cur == ARGV[1] then
  if ARGV[3] == '1' then
    redis.call('DEL', KEYS[1])
  else
    redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[4])
  end
  return 1
end
return 0
`

const maxCASRetries = 8

// BucketStore is the Redis-backed token-bucket store.
type BucketStore struct {
	client *redis.Client
	prefix string
	cas    *redis.Script
}

// NewBucketStore returns a BucketStore keyed under prefix+":"+key.
func NewBucketStore(client *redis.Client, prefix string) *BucketStore {
	return &BucketStore{client: client, prefix: prefix, cas: redis.NewScript(casScript)}
}

var _ storage.BucketStore = (*BucketStore)(nil)

func (s *BucketStore) fullKey(key string) string {
	return s.prefix + ":bucket:" + key
}

// Compute reads the current state, runs fn in Go, then attempts to persist
// the result via the CAS script, retrying against the latest value on
// conflict from a concurrent writer for the same key.
func (s *BucketStore) Compute(ctx context.Context, key string, ttl time.Duration, now time.Time, fn storage.BucketCompute) (ratelimit.Decision, error) {
	fullKey := s.fullKey(key)
	nowMs := now.UnixMilli()

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		rawOld, err := s.client.Get(ctx, fullKey).Result()
		if err != nil && err != redis.Nil {
			return ratelimit.Decision{}, err
		}

		var priorPtr *ratelimit.State
		if err != redis.Nil && rawOld != "" {
			var prior ratelimit.State
			if err := json.Unmarshal([]byte(rawOld), &prior); err != nil {
				return ratelimit.Decision{}, err
			}
			if nowMs <= prior.ExpiresAtMs {
				priorPtr = &prior
			}
		}
		if err == redis.Nil {
			rawOld = ""
		}

		next, decision := fn(priorPtr, nowMs)

		del := "0"
		rawNew := ""
		ttlMs := int64(1)
		if nowMs > next.ExpiresAtMs {
			del = "1"
		} else {
			encoded, err := json.Marshal(next)
			if err != nil {
				return ratelimit.Decision{}, err
			}
			rawNew = string(encoded)
			ttlMs = next.ExpiresAtMs - nowMs
			if ttlMs < 1 {
				ttlMs = 1
			}
		}

		result, err := s.cas.Run(ctx, s.client, []string{fullKey}, rawOld, rawNew, del, ttlMs).Int()
		if err != nil {
			return ratelimit.Decision{}, err
		}
		if result == 1 {
			return decision, nil
		}
		// Conflict: another writer raced us for this key. Retry with the
		// latest value.
	}

	return ratelimit.Decision{}, storage.ErrCASConflict
}
