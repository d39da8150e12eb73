package memory

import (
	"context"
	"testing"
	"time"

	"github.com/starvault/casebot/internal/app/domain/banlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanStore_BanGetUnban(t *testing.T) {
	s := NewBanStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	err := s.Ban(ctx, banlist.Entry{IP: "3.3.3.3", Reason: "velocity hard block", CreatedAt: now})
	require.NoError(t, err)

	entry, err := s.Get(ctx, "3.3.3.3")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "velocity hard block", entry.Reason)
	assert.True(t, entry.Active(now))

	err = s.Unban(ctx, "3.3.3.3")
	require.NoError(t, err)

	entry, err = s.Get(ctx, "3.3.3.3")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestBanStore_List_SortedByIP(t *testing.T) {
	s := NewBanStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	for _, ip := range []string{"9.9.9.9", "1.1.1.1", "5.5.5.5"} {
		require.NoError(t, s.Ban(ctx, banlist.Entry{IP: ip, CreatedAt: now}))
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"1.1.1.1", "5.5.5.5", "9.9.9.9"}, []string{entries[0].IP, entries[1].IP, entries[2].IP})
}

func TestBanStore_List_IncludesExpired(t *testing.T) {
	s := NewBanStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)
	past := now.Add(-time.Hour)

	require.NoError(t, s.Ban(ctx, banlist.Entry{IP: "4.4.4.4", CreatedAt: now, ExpiresAt: &past}))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Active(now), "expired entries are still listed; callers filter by Active")
}
