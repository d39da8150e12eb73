package memory

import (
	"context"
	"testing"
	"time"

	"github.com/starvault/casebot/internal/app/domain/payment"
	"github.com/starvault/casebot/internal/app/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStore_PutIfAbsentIsIdempotent(t *testing.T) {
	s := NewPaymentStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	record := payment.Record{TelegramPaymentChargeID: "chg-1", UserID: "u-1", TotalAmount: 100, Status: payment.StatusPaid, CreatedAt: now}

	stored, inserted, err := s.PutIfAbsent(ctx, record)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, payment.StatusPaid, stored.Status)

	dup := record
	dup.Status = payment.StatusFailed
	stored, inserted, err = s.PutIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, payment.StatusPaid, stored.Status, "re-submission with the same charge id must not overwrite")
}

func TestPaymentStore_UpdateStatus(t *testing.T) {
	s := NewPaymentStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	_, _, err := s.PutIfAbsent(ctx, payment.Record{TelegramPaymentChargeID: "chg-2", Status: payment.StatusPaid, CreatedAt: now})
	require.NoError(t, err)

	itemID := "item-7"
	err = s.UpdateStatus(ctx, "chg-2", payment.StatusAwarded, &itemID)
	require.NoError(t, err)

	got, err := s.Get(ctx, "chg-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payment.StatusAwarded, got.Status)
	require.NotNil(t, got.AwardedItemID)
	assert.Equal(t, "item-7", *got.AwardedItemID)
}

func TestPaymentStore_UpdateStatusUnknownCharge(t *testing.T) {
	s := NewPaymentStore()
	err := s.UpdateStatus(context.Background(), "missing", payment.StatusFailed, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
