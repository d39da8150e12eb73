// Package telegram isolates the core from the chat platform's actual wire
// encoding (explicitly out of scope per the purpose/scope statement): a
// narrow Client interface plus a rate-limited HTTP implementation and a
// recording test fake.
package telegram

import "context"

// WebhookInfo mirrors the subset of getWebhookInfo exposed to the admin
// surface (C11), with any secret fields omitted.
type WebhookInfo struct {
	URL                  string
	HasCustomCertificate bool
	PendingUpdateCount   int
	LastErrorDate        int64
	LastErrorMessage     string
	MaxConnections       int
	AllowedUpdates       []string
}

// SetWebhookParams configures the platform's push-delivery mode.
type SetWebhookParams struct {
	URL            string
	SecretToken    string
	AllowedUpdates []string
	MaxConnections int
	DropPending    bool
}

// Client is the narrow surface the core depends on; the wire format behind
// it is an implementation detail (§4.11).
type Client interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendInvoiceLink(ctx context.Context, title, description, payload, currency string, amount int64) (string, error)
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error
	AnswerCallbackQuery(ctx context.Context, queryID string, text string) error
	RefundStarPayment(ctx context.Context, userID, telegramPaymentChargeID string) error
	// SendGift fulfills a GIFT prize item (§4.8 step 4): giftID is the gift
	// to send; the award service passes the case's PrizeItem.ID.
	SendGift(ctx context.Context, userID, giftID string) error
	// GrantPremiumSubscription fulfills a PREMIUM_{3,6,12}M prize item,
	// months being one of 3, 6, 12.
	GrantPremiumSubscription(ctx context.Context, userID string, months int) error
	SetWebhook(ctx context.Context, params SetWebhookParams) error
	DeleteWebhook(ctx context.Context, dropPending bool) error
	GetWebhookInfo(ctx context.Context) (WebhookInfo, error)
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]byte, error)
}
