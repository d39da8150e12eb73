package httpapi

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starvault/casebot/internal/app/core/lifecycle"
	coresvc "github.com/starvault/casebot/internal/app/core/service"
	"github.com/starvault/casebot/internal/app/domain/updatepipe"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/queue"
	"github.com/starvault/casebot/pkg/logger"
)

// pollState is one of the long-poll runner's four states (§4.5).
type pollState int32

const (
	pollIdle pollState = iota
	pollPolling
	pollBackoff
	pollStopped
)

const (
	longPollTimeoutSec = 25
	backoffInitial     = 1 * time.Second
	backoffMax         = 30 * time.Second
)

// LongPollRunner pulls updates via getUpdates instead of receiving a
// webhook push. Exactly one of the webhook receiver or this runner is
// active in a given deployment (§4.5): running both would double-deliver
// every update.
type LongPollRunner struct {
	client  telegram.Client
	queue   *queue.Queue
	metrics Metrics
	log     *logger.Logger

	state  atomic.Int32
	offset atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLongPollRunner returns a runner pulling updates from client into queue.
func NewLongPollRunner(client telegram.Client, q *queue.Queue, metrics Metrics, log *logger.Logger) *LongPollRunner {
	if metrics == nil {
		metrics = NoopMetrics
	}
	if log == nil {
		log = logger.NewDefault("longpoll")
	}
	r := &LongPollRunner{client: client, queue: q, metrics: metrics, log: log}
	r.state.Store(int32(pollIdle))
	return r
}

func (r *LongPollRunner) Name() string { return "longpoll-runner" }

func (r *LongPollRunner) Descriptor() coresvc.Descriptor {
	return coresvc.Descriptor{Name: r.Name(), Domain: "ingress", Layer: coresvc.LayerIngress}
}

// State reports the current poll state, for the admin diagnostics surface.
func (r *LongPollRunner) State() string {
	switch pollState(r.state.Load()) {
	case pollPolling:
		return "POLLING"
	case pollBackoff:
		return "BACKOFF"
	case pollStopped:
		return "STOPPED"
	default:
		return "IDLE"
	}
}

func (r *LongPollRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	r.state.Store(int32(pollPolling))
	go r.run(runCtx)
	return nil
}

func (r *LongPollRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	r.state.Store(int32(pollStopped))
	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func (r *LongPollRunner) run(ctx context.Context) {
	defer close(r.done)
	backoff := backoffInitial

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.metrics.IncLongPollCall()
		raw, err := r.client.GetUpdates(ctx, r.offset.Load(), longPollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.metrics.IncLongPollError()
			r.metrics.IncLongPollRetry()
			r.state.Store(int32(pollBackoff))
			r.log.WithField("error", err.Error()).Warn("long-poll call failed, backing off")
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = backoffInitial
		r.state.Store(int32(pollPolling))
		r.processBatch(ctx, raw)
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > backoffMax {
		next = backoffMax
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// processBatch decodes the raw getUpdates "result" array and enqueues every
// update. The offset only advances past the highest update_id once every
// update in the batch has enqueued successfully (§4.5); if any enqueue
// fails, the offset stays put so the next getUpdates call redelivers the
// whole batch rather than silently skipping the failed update.
func (r *LongPollRunner) processBatch(ctx context.Context, raw []byte) {
	var rawUpdates []json.RawMessage
	if err := json.Unmarshal(raw, &rawUpdates); err != nil {
		r.log.WithField("error", err.Error()).Warn("failed to decode getUpdates batch")
		return
	}

	var highest int64
	ok := true
	for _, item := range rawUpdates {
		update, err := updatepipe.Parse(item)
		if err != nil {
			continue
		}
		if err := r.queue.Enqueue(ctx, update); err != nil {
			r.log.WithField("updateId", update.UpdateID).Warn("long-poll enqueue failed")
			ok = false
			continue
		}
		if update.UpdateID > highest {
			highest = update.UpdateID
		}
	}
	if ok && highest > 0 {
		r.offset.Store(highest + 1)
	}
}

var _ lifecycle.Service = (*LongPollRunner)(nil)
var _ lifecycle.DescriptorProvider = (*LongPollRunner)(nil)
