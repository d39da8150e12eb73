package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starvault/casebot/internal/app/domain/caseconfig"
	domainpay "github.com/starvault/casebot/internal/app/domain/payment"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/rngsvc"
	"github.com/starvault/casebot/internal/app/storage/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var fairnessKey = []byte("fairness-key-fairness-key-123456")

func starterCase(caseID string) (caseconfig.CaseConfig, bool) {
	if caseID != "starter" {
		return caseconfig.CaseConfig{}, false
	}
	star := int64(50)
	return caseconfig.CaseConfig{
		ID:         "starter",
		Title:      "Starter Case",
		PriceStars: 100,
		Items: []caseconfig.PrizeItem{
			{ID: "gift-small", Kind: caseconfig.KindGift, StarCost: &star, ProbabilityPpm: 1_000_000},
		},
	}, true
}

func starterItems(caseID string) ([]caseconfig.PrizeItem, bool) {
	cfg, ok := starterCase(caseID)
	if !ok {
		return nil, false
	}
	return cfg.Items, true
}

type recordingAwarder struct {
	fail  bool
	calls []caseconfig.PrizeItem
}

func (a *recordingAwarder) Award(_ context.Context, _, _ string, item caseconfig.PrizeItem) error {
	if a.fail {
		return errors.New("awarder: platform rejected gift")
	}
	a.calls = append(a.calls, item)
	return nil
}

func newTestService(now time.Time, sink *telegram.RecordingSink, awarder Awarder) *Service {
	clk := fixedClock{now: now}
	rng := rngsvc.New(memory.NewRNGStore(), clk, fairnessKey, starterItems)
	return New(memory.NewPaymentStore(), rng, sink, clk, fairnessKey, starterCase, awarder, nil)
}

func TestService_CreateInvoice(t *testing.T) {
	sink := telegram.NewRecordingSink()
	svc := newTestService(time.Unix(1700000000, 0), sink, &recordingAwarder{})

	link, err := svc.CreateInvoice(context.Background(), "starter", "user-1", "nonce-1")
	require.NoError(t, err)
	assert.NotEmpty(t, link)
	require.Len(t, sink.Invoices, 1)
	assert.Equal(t, int64(100), sink.Invoices[0].Amount)
	assert.Equal(t, "XTR", sink.Invoices[0].Currency)
}

func TestService_ValidatePreCheckout(t *testing.T) {
	sink := telegram.NewRecordingSink()
	now := time.Unix(1700000000, 0)
	svc := newTestService(now, sink, &recordingAwarder{})
	ctx := context.Background()

	payload, err := EncodePayload(fairnessKey, domainpay.InvoicePayload{CaseID: "starter", UserID: "user-1", Nonce: "nonce-1", Exp: now.Add(time.Hour).Unix()})
	require.NoError(t, err)

	assert.True(t, svc.ValidatePreCheckout(ctx, payload, "XTR", 100))
	assert.False(t, svc.ValidatePreCheckout(ctx, payload, "USD", 100), "wrong currency must fail")
	assert.False(t, svc.ValidatePreCheckout(ctx, payload, "XTR", 50), "wrong amount must fail")
}

func TestService_HandleSuccessfulPayment_AwardsAndMarksAwarded(t *testing.T) {
	sink := telegram.NewRecordingSink()
	now := time.Unix(1700000000, 0)
	awarder := &recordingAwarder{}
	svc := newTestService(now, sink, awarder)
	ctx := context.Background()

	payload, err := EncodePayload(fairnessKey, domainpay.InvoicePayload{CaseID: "starter", UserID: "user-1", Nonce: "nonce-1", Exp: now.Add(time.Hour).Unix()})
	require.NoError(t, err)

	err = svc.HandleSuccessfulPayment(ctx, "charge-1", "provider-1", payload, "XTR", 100, "user-1")
	require.NoError(t, err)
	require.Len(t, awarder.calls, 1)
	assert.Equal(t, "gift-small", awarder.calls[0].ID)
}

func TestService_HandleSuccessfulPayment_IsIdempotentOnChargeID(t *testing.T) {
	sink := telegram.NewRecordingSink()
	now := time.Unix(1700000000, 0)
	awarder := &recordingAwarder{}
	svc := newTestService(now, sink, awarder)
	ctx := context.Background()

	payload, err := EncodePayload(fairnessKey, domainpay.InvoicePayload{CaseID: "starter", UserID: "user-1", Nonce: "nonce-1", Exp: now.Add(time.Hour).Unix()})
	require.NoError(t, err)

	require.NoError(t, svc.HandleSuccessfulPayment(ctx, "charge-1", "provider-1", payload, "XTR", 100, "user-1"))
	require.NoError(t, svc.HandleSuccessfulPayment(ctx, "charge-1", "provider-1", payload, "XTR", 100, "user-1"))

	assert.Len(t, awarder.calls, 1, "a replayed charge id must not award twice")
}

func TestService_HandleSuccessfulPayment_RefundsOnAwardFailure(t *testing.T) {
	sink := telegram.NewRecordingSink()
	now := time.Unix(1700000000, 0)
	awarder := &recordingAwarder{fail: true}
	svc := newTestService(now, sink, awarder)
	ctx := context.Background()

	payload, err := EncodePayload(fairnessKey, domainpay.InvoicePayload{CaseID: "starter", UserID: "user-1", Nonce: "nonce-1", Exp: now.Add(time.Hour).Unix()})
	require.NoError(t, err)

	err = svc.HandleSuccessfulPayment(ctx, "charge-1", "provider-1", payload, "XTR", 100, "user-1")
	assert.Error(t, err)
	assert.Len(t, sink.Refunds, 1, "award failure must trigger a refund")
}

