// Package payment defines the payment lifecycle data model (C10).
package payment

import "time"

// Status is one state in the per-order machine:
// NEW -> INVOICED -> PRECHECKED -> PAID -> AWARDED, with terminal sinks
// REFUNDED and FAILED.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInvoiced   Status = "INVOICED"
	StatusPrechecked Status = "PRECHECKED"
	StatusPaid       Status = "PAID"
	StatusAwarded    Status = "AWARDED"
	StatusRefunded   Status = "REFUNDED"
	StatusFailed     Status = "FAILED"
)

// Record is one payment. Identity and idempotency key: TelegramPaymentChargeID.
type Record struct {
	TelegramPaymentChargeID string
	ProviderPaymentChargeID string
	InvoicePayload          string
	Currency                string
	TotalAmount             int64
	UserID                  string
	Status                  Status
	AwardedItemID           *string
	CreatedAt               time.Time
}

// InvoicePayload is the decoded, tamper-evident contents threaded through the
// platform's opaque invoice payload field (§9 Open Questions resolution).
type InvoicePayload struct {
	CaseID string `json:"c"`
	UserID string `json:"u"`
	Nonce  string `json:"n"`
	Exp    int64  `json:"exp"`
}

// PremiumCostStars is the informational (not re-charged) cost table for
// premium-subscription prize kinds, keyed by month count (§4.8).
var PremiumCostStars = map[int]int64{
	3:  1000,
	6:  1500,
	12: 2500,
}
