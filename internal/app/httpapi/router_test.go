package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starvault/casebot/internal/app/domain/ratelimit"
	"github.com/starvault/casebot/internal/app/domain/updatepipe"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/banservice"
	"github.com/starvault/casebot/internal/app/services/payment"
	"github.com/starvault/casebot/internal/app/services/queue"
	"github.com/starvault/casebot/internal/app/services/ratelimiter"
	"github.com/starvault/casebot/internal/app/services/rngsvc"
	"github.com/starvault/casebot/internal/app/services/velocityscorer"
	"github.com/starvault/casebot/internal/app/storage/memory"
)

// spyDispatch records every update handed to the queue's worker pool,
// standing in for NewDispatcher so a router-level test can observe that a
// webhook request actually reached the dispatch pipeline.
type spyDispatch struct {
	mu      sync.Mutex
	updates []updatepipe.Update
	seen    chan struct{}
}

func newSpyDispatch() *spyDispatch {
	return &spyDispatch{seen: make(chan struct{}, 16)}
}

func (s *spyDispatch) handle(_ context.Context, update updatepipe.Update) error {
	s.mu.Lock()
	s.updates = append(s.updates, update)
	s.mu.Unlock()
	s.seen <- struct{}{}
	return nil
}

func (s *spyDispatch) waitOne(t *testing.T) {
	t.Helper()
	select {
	case <-s.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched update")
	}
}

// newRouterTestHandler wires a full Handler against in-memory stores, mirroring
// cmd/appserver/main.go's composition but with a spy in place of the real
// dispatcher so tests can assert on delivery.
func newRouterTestHandler(t *testing.T, scorer *velocityscorer.Scorer) (*Handler, *spyDispatch) {
	t.Helper()
	clk := dispatchFixedClock{now: time.Unix(1700000000, 0)}

	spy := newSpyDispatch()
	q := queue.New(memory.NewDedupStore(), clk, spy.handle, queue.NoopMetrics, queue.Params{
		Capacity: 64, Workers: 2, DedupTTL: time.Hour,
	})
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	limiter := ratelimiter.New(memory.NewBucketStore(), clk)
	bans := banservice.New(memory.NewBanStore(), clk)
	rng := rngsvc.New(memory.NewRNGStore(), clk, dispatchFairnessKey, dispatchStarterItems)
	pay := payment.New(memory.NewPaymentStore(), rng, telegram.NewRecordingSink(), clk, dispatchFairnessKey, dispatchStarterCase, nil, nil)

	h := NewHandler(Config{
		Queue:               q,
		Limiter:             limiter,
		Scorer:              scorer,
		Bans:                bans,
		Payments:            pay,
		Clock:               clk,
		BotToken:            initDataBotToken,
		WebhookSecretToken:  "webhook-secret",
		IPBucketParams:      ratelimit.Params{Capacity: 1000, RefillPerSec: 1000, InitialTokens: 1000, TTLSec: 3600},
		SubjectBucketParams: ratelimit.Params{Capacity: 1000, RefillPerSec: 1000, InitialTokens: 1000, TTLSec: 3600},
		Metrics:             NoopMetrics,
	})
	return h, spy
}

func generousScorer(clk dispatchFixedClock) *velocityscorer.Scorer {
	return lenientScorer(clk)
}

// TestRouter_WebhookSecretGate covers §8 scenario 1: a request missing the
// webhook secret header is rejected at the middleware layer before it ever
// reaches the dispatcher; the same request with the correct secret is
// accepted and dispatched.
func TestRouter_WebhookSecretGate(t *testing.T) {
	clk := dispatchFixedClock{now: time.Unix(1700000000, 0)}
	h, spy := newRouterTestHandler(t, generousScorer(clk))
	router := h.Router()

	body := []byte(`{"update_id":7}`)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var errBody errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "forbidden", errBody.Error)

	req2 := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(string(body)))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("X-Telegram-Bot-Api-Secret-Token", "webhook-secret")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "ok", rec2.Body.String())

	spy.waitOne(t)
	spy.mu.Lock()
	require.Len(t, spy.updates, 1)
	assert.Equal(t, int64(7), spy.updates[0].UpdateID)
	spy.mu.Unlock()
}

// TestRouter_WebhookOversizedBodyRejected covers §8 scenario 2: a body past
// the 1 MiB cap is rejected with 413 before the secret-gated handler runs.
func TestRouter_WebhookOversizedBodyRejected(t *testing.T) {
	clk := dispatchFixedClock{now: time.Unix(1700000000, 0)}
	h, spy := newRouterTestHandler(t, generousScorer(clk))
	router := h.Router()

	oversized := strings.Repeat("a", 1_200_000)
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(oversized))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "webhook-secret")
	req.ContentLength = int64(len(oversized))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	select {
	case <-spy.seen:
		t.Fatal("oversized body must not reach the dispatcher")
	case <-time.After(50 * time.Millisecond):
	}
}

// strictInvoiceScorer makes a second invoice call from the same IP trip
// HARD_BLOCK while the first one passes, isolating §8 scenario 5's velocity
// path from every other flag.
func strictInvoiceScorer(clk dispatchFixedClock) *velocityscorer.Scorer {
	return velocityscorer.New(memory.NewVelocityStore(), clk, velocityscorer.Params{
		ShortWindow:   time.Minute,
		LongWindow:    10 * time.Minute,
		IPShortMax:    1,
		IPLongMax:     1000,
		PathsMax:      1000,
		InvoiceMax:    1000,
		PrecheckMax:   1000,
		SuccessMax:    1000,
		UAMaxTokens:   1000,
		UAMismatchTTL: time.Hour,
		FlagScore:     1000,
		SoftCap:       1000,
		HardBlock:     1000,
	})
}

// TestRouter_InvoiceHardBlockReturns429 covers §8 scenario 5: a burst of
// invoice requests from one IP trips the velocity scorer's HARD_BLOCK verdict
// and the request is denied with 429 instead of minting an invoice.
func TestRouter_InvoiceHardBlockReturns429(t *testing.T) {
	clk := dispatchFixedClock{now: time.Unix(1700000000, 0)}
	h, _ := newRouterTestHandler(t, strictInvoiceScorer(clk))
	router := h.Router()

	reqBody, err := json.Marshal(invoiceRequest{InitData: initDataRaw, CaseID: "starter"})
	require.NoError(t, err)

	first := httptest.NewRequest(http.MethodPost, "/api/miniapp/invoice", strings.NewReader(string(reqBody)))
	first.Header.Set("Content-Type", "application/json")
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, first)
	require.Equal(t, http.StatusOK, rec1.Code)

	second := httptest.NewRequest(http.MethodPost, "/api/miniapp/invoice", strings.NewReader(string(reqBody)))
	second.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, second)

	require.Equal(t, http.StatusTooManyRequests, rec2.Code)
	var errBody errorBody
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &errBody))
	assert.Equal(t, "velocity", errBody.Type)
}
