package memory

import (
	"context"
	"sync"

	"github.com/starvault/casebot/internal/app/domain/payment"
	"github.com/starvault/casebot/internal/app/storage"
)

// PaymentStore is the in-memory payment-record backend for C10, keyed by
// TelegramPaymentChargeID, the machine's sole idempotency key.
type PaymentStore struct {
	mu      sync.Mutex
	records map[string]payment.Record
}

// NewPaymentStore returns an empty in-memory PaymentStore.
func NewPaymentStore() *PaymentStore {
	return &PaymentStore{records: make(map[string]payment.Record)}
}

var _ storage.PaymentStore = (*PaymentStore)(nil)

// PutIfAbsent inserts record only if no record exists for its charge id.
func (s *PaymentStore) PutIfAbsent(_ context.Context, record payment.Record) (payment.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.TelegramPaymentChargeID]; ok {
		return existing, false, nil
	}
	s.records[record.TelegramPaymentChargeID] = record
	return record, true, nil
}

// Get returns the record for chargeID, if any.
func (s *PaymentStore) Get(_ context.Context, chargeID string) (*payment.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[chargeID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// UpdateStatus transitions the record for chargeID to status, optionally
// recording the awarded item id.
func (s *PaymentStore) UpdateStatus(_ context.Context, chargeID string, status payment.Status, awardedItemID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[chargeID]
	if !ok {
		return storage.ErrNotFound
	}
	r.Status = status
	if awardedItemID != nil {
		r.AwardedItemID = awardedItemID
	}
	s.records[chargeID] = r
	return nil
}
