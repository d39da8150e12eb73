package postgres

import (
	"testing"
	"time"

	"github.com/starvault/casebot/internal/app/domain/banlist"
	"github.com/starvault/casebot/internal/app/domain/payment"
	"github.com/starvault/casebot/internal/app/domain/rng"
	"github.com/starvault/casebot/internal/app/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RNGCommitAndDraw(t *testing.T) {
	s, ctx := newTestStore(t)
	now := time.Now().UTC()

	first, err := s.PutCommitIfAbsent(ctx, rng.SeedCommit{DayUTC: "2026-07-31", ServerSeedHash: "hash-a", CommittedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "hash-a", first.ServerSeedHash)

	second, err := s.PutCommitIfAbsent(ctx, rng.SeedCommit{DayUTC: "2026-07-31", ServerSeedHash: "hash-b", CommittedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "hash-a", second.ServerSeedHash)

	require.NoError(t, s.Reveal(ctx, "2026-07-31", "real-seed", now))
	err = s.Reveal(ctx, "2026-07-31", "other-seed", now)
	assert.ErrorIs(t, err, storage.ErrAlreadyRevealed)

	draw := rng.DrawRecord{CaseID: "case-1", UserID: "user-1", Nonce: "n-1", ServerSeedHash: "hash-a", RollHex: "ab12", PPM: 1000, CreatedAt: now}
	stored, inserted, err := s.PutDrawIfAbsent(ctx, draw)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "ab12", stored.RollHex)

	_, inserted, err = s.PutDrawIfAbsent(ctx, draw)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestStore_PaymentLifecycle(t *testing.T) {
	s, ctx := newTestStore(t)
	now := time.Now().UTC()

	record := payment.Record{TelegramPaymentChargeID: "chg-1", Currency: "XTR", TotalAmount: 100, UserID: "u-1", Status: payment.StatusPaid, CreatedAt: now}
	_, inserted, err := s.PutIfAbsent(ctx, record)
	require.NoError(t, err)
	assert.True(t, inserted)

	itemID := "item-1"
	require.NoError(t, s.UpdateStatus(ctx, "chg-1", payment.StatusAwarded, &itemID))

	got, err := s.Get(ctx, "chg-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payment.StatusAwarded, got.Status)
}

func TestStore_BanRoundTrip(t *testing.T) {
	s, ctx := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.Ban(ctx, banlist.Entry{IP: "1.2.3.4", Reason: "velocity", CreatedAt: now}))

	entry, err := s.Get(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "velocity", entry.Reason)

	require.NoError(t, s.Unban(ctx, "1.2.3.4"))
	entry, err = s.Get(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
