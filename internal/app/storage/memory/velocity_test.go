package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVelocityStore_Increment_WindowSlides(t *testing.T) {
	s := NewVelocityStore()
	ctx := context.Background()
	base := time.Unix(1000, 0)
	window := 10 * time.Second

	for i := 0; i < 3; i++ {
		count, err := s.Increment(ctx, "ip:9.9.9.9", base.Add(time.Duration(i)*time.Second), window)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), count)
	}

	count, err := s.Increment(ctx, "ip:9.9.9.9", base.Add(15*time.Second), window)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "events older than the window must be pruned")
}

func TestVelocityStore_Distinct_TracksAndExpiresTokens(t *testing.T) {
	s := NewVelocityStore()
	ctx := context.Background()
	base := time.Unix(2000, 0)
	ttl := 30 * time.Second

	count, err := s.Distinct(ctx, "user:42", "ua-a", base, ttl)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = s.Distinct(ctx, "user:42", "ua-b", base.Add(time.Second), ttl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "a second distinct token within ttl must raise the count")

	count, err = s.Distinct(ctx, "user:42", "ua-a", base.Add(time.Second), ttl)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "re-seeing a known token must not double count")

	count, err = s.Distinct(ctx, "user:42", "ua-c", base.Add(ttl+time.Second), ttl)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "tokens older than ttl must be evicted before counting")
}
