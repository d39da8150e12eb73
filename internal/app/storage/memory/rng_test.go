package memory

import (
	"context"
	"testing"
	"time"

	"github.com/starvault/casebot/internal/app/domain/rng"
	"github.com/starvault/casebot/internal/app/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNGStore_CommitIsFirstWriterWins(t *testing.T) {
	s := NewRNGStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	first, err := s.PutCommitIfAbsent(ctx, rng.SeedCommit{DayUTC: "2026-07-31", ServerSeedHash: "hash-a", CommittedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "hash-a", first.ServerSeedHash)

	second, err := s.PutCommitIfAbsent(ctx, rng.SeedCommit{DayUTC: "2026-07-31", ServerSeedHash: "hash-b", CommittedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "hash-a", second.ServerSeedHash, "a later commit for the same day must not overwrite the first")
}

func TestRNGStore_RevealRequiresCommit(t *testing.T) {
	s := NewRNGStore()
	ctx := context.Background()

	err := s.Reveal(ctx, "2026-08-01", "seed", time.Unix(2000, 0))
	assert.ErrorIs(t, err, storage.ErrNoCommit)
}

func TestRNGStore_RevealIsIdempotentButRejectsDivergentSeed(t *testing.T) {
	s := NewRNGStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	_, err := s.PutCommitIfAbsent(ctx, rng.SeedCommit{DayUTC: "2026-07-31", ServerSeedHash: "hash-a", CommittedAt: now})
	require.NoError(t, err)

	err = s.Reveal(ctx, "2026-07-31", "real-seed", now.Add(24*time.Hour))
	require.NoError(t, err)

	err = s.Reveal(ctx, "2026-07-31", "real-seed", now.Add(24*time.Hour))
	assert.NoError(t, err, "revealing the same seed again must be a no-op")

	err = s.Reveal(ctx, "2026-07-31", "different-seed", now.Add(24*time.Hour))
	assert.ErrorIs(t, err, storage.ErrAlreadyRevealed)

	commit, err := s.GetCommit(ctx, "2026-07-31")
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.True(t, commit.Revealed())
	assert.Equal(t, "real-seed", commit.ServerSeed)
}

func TestRNGStore_DrawJournalIsIdempotent(t *testing.T) {
	s := NewRNGStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	draw := rng.DrawRecord{CaseID: "case-1", UserID: "user-1", Nonce: "n-1", RollHex: "ab12", PPM: 500000, CreatedAt: now}

	stored, inserted, err := s.PutDrawIfAbsent(ctx, draw)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "ab12", stored.RollHex)

	dup := draw
	dup.RollHex = "ffff"
	stored, inserted, err = s.PutDrawIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted, "same (case,user,nonce) must not re-insert")
	assert.Equal(t, "ab12", stored.RollHex, "the first-written draw must be returned, not the duplicate")

	got, err := s.GetDraw(ctx, "case-1", "user-1", "n-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ab12", got.RollHex)
}
