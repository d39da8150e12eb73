package memory

import (
	"context"
	"sync"
	"time"

	"github.com/starvault/casebot/internal/app/storage"
)

// DedupStore is the in-memory at-most-once admission backend for the update
// queue (C5). Entries are pruned lazily on SeenOrMark, consistent with the
// ~26h dedup TTL described in §4.3.
type DedupStore struct {
	mu      sync.Mutex
	seenAt  map[int64]time.Time
	expires map[int64]time.Time
}

// NewDedupStore returns an empty in-memory DedupStore.
func NewDedupStore() *DedupStore {
	return &DedupStore{seenAt: make(map[int64]time.Time), expires: make(map[int64]time.Time)}
}

var _ storage.DedupStore = (*DedupStore)(nil)

// SeenOrMark returns true if updateID was already marked and unexpired,
// otherwise marks it with the given ttl and returns false. A full map scan
// for expired entries runs opportunistically to bound memory growth.
func (s *DedupStore) SeenOrMark(_ context.Context, updateID int64, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt, ok := s.expires[updateID]; ok {
		if now.Before(expiresAt) {
			return true, nil
		}
		delete(s.expires, updateID)
		delete(s.seenAt, updateID)
	}

	s.seenAt[updateID] = now
	s.expires[updateID] = now.Add(ttl)

	if len(s.expires) > 4096 {
		s.sweep(now)
	}

	return false, nil
}

func (s *DedupStore) sweep(now time.Time) {
	for id, expiresAt := range s.expires {
		if !now.Before(expiresAt) {
			delete(s.expires, id)
			delete(s.seenAt, id)
		}
	}
}
