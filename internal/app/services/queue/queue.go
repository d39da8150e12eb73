// Package queue implements the bounded, deduplicating update ingestion
// pipeline (C5): a drop-oldest ring buffer guarded by a TTL dedup set, drained
// by a fixed worker pool, lifecycle-managed the way the teacher's
// oracle.Dispatcher is.
package queue

import (
	"context"
	"sync"
	"time"

	core "github.com/starvault/casebot/internal/app/core/clock"
	coresvc "github.com/starvault/casebot/internal/app/core/service"
	"github.com/starvault/casebot/internal/app/domain/updatepipe"
	"github.com/starvault/casebot/internal/app/storage"
)

// Handler processes one dequeued update. The worker loop discards returned
// errors; the queue itself has no retry policy for handler failures.
type Handler func(ctx context.Context, update updatepipe.Update) error

// Metrics receives the queue's counters and timings. Every method has a
// no-op default so callers that don't care about observability can ignore
// it.
type Metrics interface {
	SetQueueSize(n int)
	IncEnqueued()
	IncDuplicated()
	IncDropped()
	IncProcessed()
	ObserveHandleSeconds(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) SetQueueSize(int)                  {}
func (noopMetrics) IncEnqueued()                      {}
func (noopMetrics) IncDuplicated()                    {}
func (noopMetrics) IncDropped()                       {}
func (noopMetrics) IncProcessed()                     {}
func (noopMetrics) ObserveHandleSeconds(time.Duration) {}

// NoopMetrics is the default Metrics sink used when none is configured.
var NoopMetrics Metrics = noopMetrics{}

// Params configures capacity, worker count, and the dedup TTL (§4.3,
// QueueConfig).
type Params struct {
	Capacity int
	Workers  int
	DedupTTL time.Duration
	// DrainTimeout bounds how long Stop waits for in-flight workers to
	// finish draining before giving up.
	DrainTimeout time.Duration
}

// Queue is a bounded, deduplicating, drop-oldest, multi-worker update queue.
type Queue struct {
	dedup   storage.DedupStore
	clock   core.Clock
	handler Handler
	metrics Metrics
	params  Params

	mu     sync.Mutex
	items  []updatepipe.Update
	notEmpty chan struct{}
	closed bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New returns a Queue backed by dedup, with handler invoked for each item
// once Start runs. params.Capacity/Workers/DedupTTL fall back to §4.3's
// defaults (1024/6/26h) when zero.
func New(dedup storage.DedupStore, clk core.Clock, handler Handler, metrics Metrics, params Params) *Queue {
	if params.Capacity <= 0 {
		params.Capacity = 1024
	}
	if params.Workers <= 0 {
		params.Workers = 6
	}
	if params.DedupTTL <= 0 {
		params.DedupTTL = 26 * time.Hour
	}
	if params.DrainTimeout <= 0 {
		params.DrainTimeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = NoopMetrics
	}
	return &Queue{
		dedup:    dedup,
		clock:    clk,
		handler:  handler,
		metrics:  metrics,
		params:   params,
		items:    make([]updatepipe.Update, 0, params.Capacity),
		notEmpty: make(chan struct{}, 1),
	}
}

func (q *Queue) Name() string { return "update-queue" }

// Descriptor advertises the queue's placement for admin diagnostics.
func (q *Queue) Descriptor() coresvc.Descriptor {
	return coresvc.Descriptor{
		Name:         "update-queue",
		Domain:       "ingestion",
		Layer:        coresvc.LayerIngress,
		Capabilities: []string{"enqueue", "dedup", "dispatch"},
	}
}

// Enqueue admits update per §4.3: dedup check, then a non-blocking push that
// evicts the oldest queued item on overflow. A closed queue counts every
// enqueue attempt as dropped.
func (q *Queue) Enqueue(ctx context.Context, update updatepipe.Update) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.metrics.IncDropped()
		return nil
	}
	q.mu.Unlock()

	seen, err := q.dedup.SeenOrMark(ctx, update.UpdateID, q.clock.Now(), q.params.DedupTTL)
	if err != nil {
		return err
	}
	if seen {
		q.metrics.IncDuplicated()
		return nil
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.metrics.IncDropped()
		return nil
	}
	if len(q.items) >= q.params.Capacity {
		q.items = q.items[1:]
		q.metrics.IncDropped()
	}
	q.items = append(q.items, update)
	size := len(q.items)
	q.mu.Unlock()

	q.metrics.IncEnqueued()
	q.metrics.SetQueueSize(size)
	q.signal()
	return nil
}

func (q *Queue) signal() {
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (updatepipe.Update, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return updatepipe.Update{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.metrics.SetQueueSize(len(q.items))
	return item, true
}

// Start spawns the configured worker count, each pulling items FIFO and
// invoking handler. No ordering guarantee across workers.
func (q *Queue) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for i := 0; i < q.params.Workers; i++ {
		q.wg.Add(1)
		go q.worker(runCtx)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		item, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.notEmpty:
				continue
			case <-time.After(250 * time.Millisecond):
				continue
			}
		}

		start := time.Now()
		if q.handler != nil {
			_ = q.handler(ctx, item)
		}
		q.metrics.ObserveHandleSeconds(time.Since(start))
		q.metrics.IncProcessed()
	}
}

// Stop stops accepting new work, drains queued items already in flight, and
// joins worker goroutines within params.DrainTimeout.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.wg.Wait()
	}()

	timeout := time.NewTimer(q.params.DrainTimeout)
	defer timeout.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return nil
	}
}

// Size returns the current number of queued (not yet dequeued) items.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
