package httpapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/starvault/casebot/internal/app/domain/updatepipe"
	"github.com/starvault/casebot/internal/app/domain/velocity"
	"github.com/starvault/casebot/internal/app/platform/telegram"
	"github.com/starvault/casebot/internal/app/services/payment"
	"github.com/starvault/casebot/internal/app/services/queue"
	"github.com/starvault/casebot/internal/app/services/velocityscorer"
	"github.com/starvault/casebot/pkg/logger"
)

// precheckoutDeadline bounds how long the pre-checkout answer path may take
// (§4.8 "Pre-checkout" / §5: a hard 10s deadline).
const precheckoutDeadline = 10 * time.Second

// DispatchConfig aggregates the dependencies the queue worker needs to route
// a dequeued update by kind to the payment state machine (§4.8).
type DispatchConfig struct {
	Scorer   *velocityscorer.Scorer
	Payments *payment.Service
	Telegram telegram.Client
	Metrics  Metrics
	Log      *logger.Logger
}

// NewDispatcher returns a queue.Handler routing KindPreCheckout and
// KindSuccessPay updates to the payment state machine. Every other kind is a
// no-op: message/callback handling is out of scope for the payment flow.
func NewDispatcher(cfg DispatchConfig) queue.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewDefault("dispatch")
	}

	return func(ctx context.Context, update updatepipe.Update) error {
		switch update.Kind {
		case updatepipe.KindPreCheckout:
			return dispatchPreCheckout(ctx, cfg, update)
		case updatepipe.KindSuccessPay:
			return dispatchSuccessfulPayment(ctx, cfg, update)
		default:
			return nil
		}
	}
}

func subjectOf(update updatepipe.Update) string {
	if update.UserID == nil {
		return ""
	}
	return *update.UserID
}

// dispatchPreCheckout answers a pre_checkout_query within the hard 10s
// deadline, demoting to a user-visible decline on antifraud HARD_BLOCK or a
// currency/amount mismatch (§4.8 "Pre-checkout").
func dispatchPreCheckout(ctx context.Context, cfg DispatchConfig, update updatepipe.Update) error {
	ctx, cancel := context.WithTimeout(ctx, precheckoutDeadline)
	defer cancel()

	var query updatepipe.PreCheckoutQuery
	if err := json.Unmarshal(update.PreCheckoutPayload, &query); err != nil {
		cfg.Log.WithField("error", err.Error()).Warn("dispatch: malformed pre-checkout payload")
		return err
	}

	subject := subjectOf(update)
	result, err := cfg.Scorer.Evaluate(ctx, velocity.Context{
		Subject:   subject,
		EventType: velocity.EventPrecheckout,
	})
	if err != nil {
		return err
	}
	for _, flag := range result.Flags {
		cfg.Metrics.IncAFFlag(string(flag))
	}
	cfg.Metrics.IncAFDecision("precheckout", string(result.Action))

	if result.Action == velocity.ActionHardBlock {
		cfg.Metrics.IncAFBlock("precheckout")
		return cfg.Telegram.AnswerPreCheckoutQuery(ctx, query.ID, false, "this purchase was declined by antifraud checks")
	}

	ok := cfg.Payments.ValidatePreCheckout(ctx, query.InvoicePayload, query.Currency, query.TotalAmount)
	if !ok {
		return cfg.Telegram.AnswerPreCheckoutQuery(ctx, query.ID, false, "invoice no longer matches the requested case")
	}
	return cfg.Telegram.AnswerPreCheckoutQuery(ctx, query.ID, true, "")
}

// dispatchSuccessfulPayment feeds a successful_payment update into the
// state machine's idempotent completion path (§4.8 "Successful payment").
// Antifraud here is observe-only: LOG_ONLY/SOFT_CAP are recorded, never
// blocking a captured payment (§4.8, post-capture).
func dispatchSuccessfulPayment(ctx context.Context, cfg DispatchConfig, update updatepipe.Update) error {
	var payload updatepipe.SuccessfulPayment
	if err := json.Unmarshal(update.SuccessPayload, &payload); err != nil {
		cfg.Log.WithField("error", err.Error()).Warn("dispatch: malformed successful-payment payload")
		return err
	}

	subject := subjectOf(update)
	result, err := cfg.Scorer.Evaluate(ctx, velocity.Context{
		Subject:   subject,
		EventType: velocity.EventSuccess,
	})
	if err != nil {
		return err
	}
	for _, flag := range result.Flags {
		cfg.Metrics.IncAFFlag(string(flag))
	}
	cfg.Metrics.IncAFDecision("success", string(result.Action))

	return cfg.Payments.HandleSuccessfulPayment(
		ctx,
		payload.TelegramPaymentChargeID,
		payload.ProviderPaymentChargeID,
		payload.InvoicePayload,
		payload.Currency,
		payload.TotalAmount,
		subject,
	)
}
