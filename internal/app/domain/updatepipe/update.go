// Package updatepipe defines the inbound platform Update data model (C5).
package updatepipe

import (
	"encoding/json"
	"strconv"
)

// Kind discriminates the update payload shape, derived from which optional
// field of the raw Telegram update is populated.
type Kind string

const (
	KindMessage     Kind = "message"
	KindPreCheckout Kind = "pre_checkout_query"
	KindSuccessPay  Kind = "successful_payment"
	KindCallback    Kind = "callback_query"
	KindUnknown     Kind = "unknown"
)

// Update is the normalized, immutable inbound event. Identity = UpdateID.
type Update struct {
	UpdateID           int64           `json:"updateId"`
	Kind               Kind            `json:"kind"`
	ChatID             *int64          `json:"chatId,omitempty"`
	UserID             *string         `json:"userId,omitempty"`
	MessagePayload     json.RawMessage `json:"messagePayload,omitempty"`
	PreCheckoutPayload json.RawMessage `json:"preCheckoutPayload,omitempty"`
	SuccessPayload     json.RawMessage `json:"successPayload,omitempty"`
}

// PreCheckoutQuery is the decoded shape of PreCheckoutPayload.
type PreCheckoutQuery struct {
	ID               string `json:"id"`
	From             struct {
		ID int64 `json:"id"`
	} `json:"from"`
	Currency         string `json:"currency"`
	TotalAmount      int64  `json:"total_amount"`
	InvoicePayload   string `json:"invoice_payload"`
}

// SuccessfulPayment is the decoded shape of SuccessPayload.
type SuccessfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
	ProviderPaymentChargeID string `json:"provider_payment_charge_id"`
}

// rawUpdate is the wire shape accepted from Telegram — permissive, unknown
// fields ignored (§4.4 step 4).
type rawUpdate struct {
	UpdateID          int64           `json:"update_id"`
	Message           json.RawMessage `json:"message,omitempty"`
	CallbackQuery     json.RawMessage `json:"callback_query,omitempty"`
	PreCheckoutQuery  json.RawMessage `json:"pre_checkout_query,omitempty"`
}

type messageEnvelope struct {
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	From struct {
		ID int64 `json:"id"`
	} `json:"from"`
	SuccessfulPayment json.RawMessage `json:"successful_payment,omitempty"`
}

// Parse decodes a raw Telegram update JSON payload into the normalized
// Update shape. Unknown fields are ignored; malformed JSON is returned as an
// error for the caller to map to a 400 ClientInput response.
func Parse(raw []byte) (Update, error) {
	var r rawUpdate
	if err := json.Unmarshal(raw, &r); err != nil {
		return Update{}, err
	}

	u := Update{UpdateID: r.UpdateID, Kind: KindUnknown}

	switch {
	case len(r.PreCheckoutQuery) > 0:
		u.Kind = KindPreCheckout
		u.PreCheckoutPayload = r.PreCheckoutQuery
		var pc PreCheckoutQuery
		if err := json.Unmarshal(r.PreCheckoutQuery, &pc); err == nil {
			uid := formatInt(pc.From.ID)
			u.UserID = &uid
		}
	case len(r.CallbackQuery) > 0:
		u.Kind = KindCallback
		u.MessagePayload = r.CallbackQuery
	case len(r.Message) > 0:
		var env messageEnvelope
		if err := json.Unmarshal(r.Message, &env); err == nil {
			chatID := env.Chat.ID
			u.ChatID = &chatID
			uid := formatInt(env.From.ID)
			u.UserID = &uid
		}
		if len(env.SuccessfulPayment) > 0 {
			u.Kind = KindSuccessPay
			u.SuccessPayload = env.SuccessfulPayment
		} else {
			u.Kind = KindMessage
			u.MessagePayload = r.Message
		}
	}

	return u, nil
}

func formatInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
