package memory

import (
	"context"
	"sync"

	"github.com/starvault/casebot/internal/app/domain/ledger"
	"github.com/starvault/casebot/internal/app/storage"
)

// LedgerStore is the in-memory internal-balance backend for the INTERNAL
// prize kind, keyed by (userID, itemID, nonce) for idempotency.
type LedgerStore struct {
	mu       sync.Mutex
	entries  map[string]ledger.Entry
	balances map[string]int64
}

// NewLedgerStore returns an empty in-memory LedgerStore.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		entries:  make(map[string]ledger.Entry),
		balances: make(map[string]int64),
	}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

func ledgerKey(e ledger.Entry) string {
	return e.UserID + "|" + e.ItemID + "|" + e.Nonce
}

// CreditIfAbsent posts entry only if its idempotency key is unseen.
func (s *LedgerStore) CreditIfAbsent(_ context.Context, entry ledger.Entry) (ledger.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledgerKey(entry)
	if existing, ok := s.entries[key]; ok {
		return existing, false, nil
	}
	s.entries[key] = entry
	s.balances[entry.UserID] += entry.Amount
	return entry, true, nil
}

// Balance returns userID's current accumulated credit.
func (s *LedgerStore) Balance(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}
