package memory

import (
	"context"
	"sync"

	"github.com/starvault/casebot/internal/app/domain/banlist"
	"github.com/starvault/casebot/internal/app/storage"
)

// BanStore is the in-memory IP ban list backend for C4.
type BanStore struct {
	mu      sync.RWMutex
	entries map[string]banlist.Entry
}

// NewBanStore returns an empty in-memory BanStore.
func NewBanStore() *BanStore {
	return &BanStore{entries: make(map[string]banlist.Entry)}
}

var _ storage.BanStore = (*BanStore)(nil)

// Ban inserts or replaces the ban entry for ip.
func (s *BanStore) Ban(_ context.Context, entry banlist.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.IP] = entry
	return nil
}

// Unban removes any ban entry for ip.
func (s *BanStore) Unban(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ip)
	return nil
}

// Get returns the ban entry for ip, if any.
func (s *BanStore) Get(_ context.Context, ip string) (*banlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[ip]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// List returns all ban entries, sorted by IP for deterministic admin output.
// Callers filter by Active(now) themselves, since expiry is a presentation
// concern, not a storage one.
func (s *BanStore) List(_ context.Context) ([]banlist.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]banlist.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sortEntriesByIP(out)
	return out, nil
}

func sortEntriesByIP(entries []banlist.Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].IP < entries[j-1].IP; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
