package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupStore_SeenOrMark(t *testing.T) {
	s := NewDedupStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)
	ttl := time.Hour

	seen, err := s.SeenOrMark(ctx, 42, now, ttl)
	require.NoError(t, err)
	assert.False(t, seen, "first sighting of an update id must not be flagged seen")

	seen, err = s.SeenOrMark(ctx, 42, now.Add(time.Minute), ttl)
	require.NoError(t, err)
	assert.True(t, seen, "a repeat within ttl must be flagged seen")
}

func TestDedupStore_ExpiresAfterTTL(t *testing.T) {
	s := NewDedupStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)
	ttl := 10 * time.Second

	_, err := s.SeenOrMark(ctx, 7, now, ttl)
	require.NoError(t, err)

	seen, err := s.SeenOrMark(ctx, 7, now.Add(ttl+time.Second), ttl)
	require.NoError(t, err)
	assert.False(t, seen, "an entry past its ttl must be treated as unseen")
}

func TestDedupStore_DistinctIDsIndependent(t *testing.T) {
	s := NewDedupStore()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	seenA, err := s.SeenOrMark(ctx, 1, now, time.Hour)
	require.NoError(t, err)
	seenB, err := s.SeenOrMark(ctx, 2, now, time.Hour)
	require.NoError(t, err)

	assert.False(t, seenA)
	assert.False(t, seenB)
}
