package memory

import (
	"context"
	"sync"
	"time"

	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/storage"
)

// BucketStore is the in-memory token-bucket backend: a map guarded by
// per-key mutexes (§9), with lazy TTL eviction on read.
type BucketStore struct {
	mu     sync.Mutex
	states map[string]ratelimit.State
	locks  *keyLocks
}

// NewBucketStore returns an empty in-memory BucketStore.
func NewBucketStore() *BucketStore {
	return &BucketStore{states: make(map[string]ratelimit.State), locks: newKeyLocks()}
}

var _ storage.BucketStore = (*BucketStore)(nil)

// Compute runs fn under the key's mutex, with the prior state (nil if absent
// or expired) and persists the result, evicting the key if the returned state
// is already expired.
func (s *BucketStore) Compute(_ context.Context, key string, _ time.Duration, now time.Time, fn storage.BucketCompute) (ratelimit.Decision, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	nowMs := now.UnixMilli()

	s.mu.Lock()
	prior, ok := s.states[key]
	s.mu.Unlock()

	var priorPtr *ratelimit.State
	if ok && nowMs <= prior.ExpiresAtMs {
		priorPtr = &prior
	}

	next, decision := fn(priorPtr, nowMs)

	s.mu.Lock()
	if nowMs > next.ExpiresAtMs {
		delete(s.states, key)
	} else {
		s.states[key] = next
	}
	s.mu.Unlock()

	return decision, nil
}
