// Package payment implements the payment lifecycle state machine (C10):
// NEW -> INVOICED -> PRECHECKED -> PAID -> AWARDED, with terminal sinks
// REFUNDED and FAILED, idempotent throughout on telegramPaymentChargeId.
package payment

import (
	"context"
	"errors"
	"time"

	core "github.com/starvault/casebot/internal/app/core/clock"
	coresvc "github.com/starvault/casebot/internal/app/core/service"
	"github.com/starvault/casebot/internal/app/domain/caseconfig"
	domain "github.com/starvault/casebot/internal/app/domain/payment"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/rngsvc"
	"github.com/starvault/casebot/internal/app/storage"
)

const currencyXTR = "XTR"

// invoiceValidity bounds how long a minted invoice payload remains
// redeemable before its embedded Exp rejects it (§9 payload codec).
const invoiceValidity = 30 * time.Minute

// CaseLookup resolves a case's public pricing/title for invoice creation.
type CaseLookup func(caseID string) (caseconfig.CaseConfig, bool)

// Metrics receives the state machine's counters. Every method has a
// no-op default.
type Metrics interface {
	IncAFBlock(kind string)
	IncSuccess()
	IncSuccessIdempotent()
	IncSuccessFail()
	IncAward(kind string)
	IncAwardFail()
	IncRefund()
	IncRefundFail()
}

type noopMetrics struct{}

func (noopMetrics) IncAFBlock(string)     {}
func (noopMetrics) IncSuccess()           {}
func (noopMetrics) IncSuccessIdempotent() {}
func (noopMetrics) IncSuccessFail()       {}
func (noopMetrics) IncAward(string)       {}
func (noopMetrics) IncAwardFail()         {}
func (noopMetrics) IncRefund()            {}
func (noopMetrics) IncRefundFail()        {}

// NoopMetrics is the default Metrics sink.
var NoopMetrics Metrics = noopMetrics{}

// Awarder fulfills a drawn prize. Implementations need not be idempotent
// themselves: the state machine only calls Award once per successfully
// drawn payment.
type Awarder interface {
	// Award fulfills item for userID, keyed by the charge id that paid for
	// it (the state machine's own idempotency key, reused by Awarder
	// implementations that need one of their own, e.g. an internal
	// ledger). A non-retryable failure (e.g. the platform rejects the
	// gift) should be returned as an error; the state machine refunds and
	// marks REFUNDED in that case.
	Award(ctx context.Context, userID, chargeID string, item caseconfig.PrizeItem) error
}

// Service implements the payment lifecycle.
type Service struct {
	store       storage.PaymentStore
	rng         *rngsvc.Service
	client      telegram.Client
	clock       core.Clock
	fairnessKey []byte
	cases       CaseLookup
	awarder     Awarder
	metrics     Metrics
}

// New returns a Service wiring the payment store, RNG service, platform
// client, case lookup, and awarder together.
func New(store storage.PaymentStore, rng *rngsvc.Service, client telegram.Client, clk core.Clock, fairnessKey []byte, cases CaseLookup, awarder Awarder, metrics Metrics) *Service {
	if metrics == nil {
		metrics = NoopMetrics
	}
	return &Service{store: store, rng: rng, client: client, clock: clk, fairnessKey: fairnessKey, cases: cases, awarder: awarder, metrics: metrics}
}

// CreateInvoice mints an invoice link for caseID/userID (§4.8 "Create
// invoice"). The caller is responsible for running antifraud evaluation and
// translating a HARD_BLOCK verdict into an AntifraudDeny response before
// calling this.
func (s *Service) CreateInvoice(ctx context.Context, caseID, userID, nonce string) (string, error) {
	caseCfg, ok := s.cases(caseID)
	if !ok {
		return "", ErrUnknownCase
	}

	payload := domain.InvoicePayload{
		CaseID: caseID,
		UserID: userID,
		Nonce:  nonce,
		Exp:    s.clock.Now().Add(invoiceValidity).Unix(),
	}
	encoded, err := EncodePayload(s.fairnessKey, payload)
	if err != nil {
		return "", err
	}

	link, err := s.client.SendInvoiceLink(ctx, caseCfg.Title, caseCfg.Title, encoded, currencyXTR, caseCfg.PriceStars)
	if err != nil {
		return "", err
	}
	return link, nil
}

// ValidatePreCheckout answers whether a pre-checkout query's currency and
// amount match the case encoded in its invoice payload (§4.8
// "Pre-checkout"). The caller answers the platform's query with the
// returned bool within the hard 10s deadline.
func (s *Service) ValidatePreCheckout(ctx context.Context, invoicePayload, currency string, totalAmount int64) bool {
	payload, err := DecodePayload(s.fairnessKey, invoicePayload, s.clock.Now())
	if err != nil {
		return false
	}
	if currency != currencyXTR {
		return false
	}
	caseCfg, ok := s.cases(payload.CaseID)
	if !ok {
		return false
	}
	return totalAmount == caseCfg.PriceStars
}

// HandleSuccessfulPayment processes a successful_payment update, idempotent
// on telegramPaymentChargeID (§4.8 "Successful payment").
func (s *Service) HandleSuccessfulPayment(ctx context.Context, telegramPaymentChargeID, providerPaymentChargeID, invoicePayload, currency string, totalAmount int64, userID string) error {
	record := domain.Record{
		TelegramPaymentChargeID: telegramPaymentChargeID,
		ProviderPaymentChargeID: providerPaymentChargeID,
		InvoicePayload:          invoicePayload,
		Currency:                currency,
		TotalAmount:             totalAmount,
		UserID:                  userID,
		Status:                  domain.StatusPaid,
		CreatedAt:               s.clock.Now(),
	}

	stored, inserted, err := s.store.PutIfAbsent(ctx, record)
	if err != nil {
		return err
	}
	if !inserted {
		s.metrics.IncSuccessIdempotent()
		return nil
	}
	s.metrics.IncSuccess()

	payload, err := DecodePayload(s.fairnessKey, stored.InvoicePayload, s.clock.Now())
	if err != nil {
		s.metrics.IncSuccessFail()
		return err
	}

	draw, err := s.rng.Draw(ctx, payload.CaseID, payload.UserID, payload.Nonce)
	if err != nil {
		s.metrics.IncSuccessFail()
		return err
	}

	caseCfg, ok := s.cases(payload.CaseID)
	if !ok {
		s.metrics.IncSuccessFail()
		return ErrUnknownCase
	}
	item := caseconfig.ResolveItem(caseCfg.Items, draw.PPM)
	if item == nil {
		item = &caseconfig.PrizeItem{ID: draw.ResultItemID, Kind: caseconfig.KindInternal}
	}

	if s.awarder != nil {
		if err := s.awarder.Award(ctx, stored.UserID, stored.TelegramPaymentChargeID, *item); err != nil {
			s.metrics.IncAwardFail()
			_ = s.Refund(ctx, stored.TelegramPaymentChargeID, stored.UserID)
			return err
		}
	}
	s.metrics.IncAward(string(item.Kind))

	awardedID := item.ID
	if err := s.store.UpdateStatus(ctx, stored.TelegramPaymentChargeID, domain.StatusAwarded, &awardedID); err != nil {
		return err
	}
	return nil
}

// Refund invokes refundStarPayment with the shared outbound retry policy
// (§4.8 "Refund"): it does not check the payment's currency, retries any
// failed attempt up to 3 attempts in all, and leaves status PAID for
// operator reconciliation on final failure.
func (s *Service) Refund(ctx context.Context, telegramPaymentChargeID, userID string) error {
	err := coresvc.Retry(ctx, coresvc.OutboundRetryPolicy, nil, func() error {
		return s.client.RefundStarPayment(ctx, userID, telegramPaymentChargeID)
	})
	if err != nil {
		s.metrics.IncRefundFail()
		return err
	}
	s.metrics.IncRefund()
	return s.store.UpdateStatus(ctx, telegramPaymentChargeID, domain.StatusRefunded, nil)
}

// ErrUnknownCase is returned when a caseID referenced by an invoice or
// payload has no corresponding case config.
var ErrUnknownCase = errors.New("payment: unknown case")
