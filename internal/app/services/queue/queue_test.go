package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starvault/casebot/internal/app/domain/updatepipe"
	"github.com/starvault/casebot/internal/app/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestQueue_DuplicateUpdateIsNotReenqueued(t *testing.T) {
	var processed int64
	q := New(memory.NewDedupStore(), fixedClock{now: time.Unix(1000, 0)}, func(_ context.Context, _ updatepipe.Update) error {
		atomic.AddInt64(&processed, 1)
		return nil
	}, nil, Params{Capacity: 8, Workers: 1})

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, updatepipe.Update{UpdateID: 1}))
	require.NoError(t, q.Enqueue(ctx, updatepipe.Update{UpdateID: 1}))

	assert.Equal(t, 1, q.Size())
}

func TestQueue_OverflowDropsOldest(t *testing.T) {
	q := New(memory.NewDedupStore(), fixedClock{now: time.Unix(1000, 0)}, nil, nil, Params{Capacity: 2, Workers: 0})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, updatepipe.Update{UpdateID: 1}))
	require.NoError(t, q.Enqueue(ctx, updatepipe.Update{UpdateID: 2}))
	require.NoError(t, q.Enqueue(ctx, updatepipe.Update{UpdateID: 3}))

	assert.Equal(t, 2, q.Size(), "overflow must evict the oldest item, not reject the newest")
}

func TestQueue_WorkersDrainAllItems(t *testing.T) {
	var mu sync.Mutex
	var seen []int64

	q := New(memory.NewDedupStore(), fixedClock{now: time.Unix(1000, 0)}, func(_ context.Context, u updatepipe.Update) error {
		mu.Lock()
		seen = append(seen, u.UpdateID)
		mu.Unlock()
		return nil
	}, nil, Params{Capacity: 16, Workers: 3})

	ctx := context.Background()
	require.NoError(t, q.Start(ctx))

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, q.Enqueue(ctx, updatepipe.Update{UpdateID: i}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 5
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, q.Stop(ctx))
}

func TestQueue_StopRejectsFurtherEnqueues(t *testing.T) {
	q := New(memory.NewDedupStore(), fixedClock{now: time.Unix(1000, 0)}, nil, nil, Params{Capacity: 4, Workers: 1})
	ctx := context.Background()
	require.NoError(t, q.Start(ctx))
	require.NoError(t, q.Stop(ctx))

	require.NoError(t, q.Enqueue(ctx, updatepipe.Update{UpdateID: 99}))
	assert.Equal(t, 0, q.Size(), "enqueue after Stop must be dropped, not queued")
}
