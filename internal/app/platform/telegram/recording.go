package telegram

import (
	"context"
	"fmt"
	"sync"
)

// RecordingSink is a test fake that records every call it receives instead
// of hitting the network, backing the testable scenarios of §8.
type RecordingSink struct {
	mu sync.Mutex

	Invoices        []InvoiceCall
	PreCheckouts    []PreCheckoutCall
	Refunds         []RefundCall
	Messages        []MessageCall
	Gifts           []GiftCall
	Premiums        []PremiumCall
	WebhookInfo     WebhookInfo
	FailRefund      bool
	FailInvoiceLink bool
	FailGift        bool
	FailPremium     bool
}

type GiftCall struct {
	UserID string
	GiftID string
}

type PremiumCall struct {
	UserID string
	Months int
}

type InvoiceCall struct {
	Title, Description, Payload, Currency string
	Amount                                int64
}

type PreCheckoutCall struct {
	QueryID      string
	OK           bool
	ErrorMessage string
}

type RefundCall struct {
	UserID                  string
	TelegramPaymentChargeID string
}

type MessageCall struct {
	ChatID int64
	Text   string
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, MessageCall{ChatID: chatID, Text: text})
	return nil
}

func (s *RecordingSink) SendInvoiceLink(_ context.Context, title, description, payload, currency string, amount int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInvoiceLink {
		return "", fmt.Errorf("telegram: recording sink configured to fail invoice creation")
	}
	s.Invoices = append(s.Invoices, InvoiceCall{Title: title, Description: description, Payload: payload, Currency: currency, Amount: amount})
	return "https://t.me/invoice/" + payload, nil
}

func (s *RecordingSink) AnswerPreCheckoutQuery(_ context.Context, queryID string, ok bool, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PreCheckouts = append(s.PreCheckouts, PreCheckoutCall{QueryID: queryID, OK: ok, ErrorMessage: errorMessage})
	return nil
}

func (s *RecordingSink) AnswerCallbackQuery(_ context.Context, queryID string, text string) error {
	return nil
}

func (s *RecordingSink) RefundStarPayment(_ context.Context, userID, telegramPaymentChargeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRefund {
		return fmt.Errorf("telegram: recording sink configured to fail refunds")
	}
	s.Refunds = append(s.Refunds, RefundCall{UserID: userID, TelegramPaymentChargeID: telegramPaymentChargeID})
	return nil
}

func (s *RecordingSink) SendGift(_ context.Context, userID, giftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGift {
		return fmt.Errorf("telegram: recording sink configured to fail gift sends")
	}
	s.Gifts = append(s.Gifts, GiftCall{UserID: userID, GiftID: giftID})
	return nil
}

func (s *RecordingSink) GrantPremiumSubscription(_ context.Context, userID string, months int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPremium {
		return fmt.Errorf("telegram: recording sink configured to fail premium grants")
	}
	s.Premiums = append(s.Premiums, PremiumCall{UserID: userID, Months: months})
	return nil
}

func (s *RecordingSink) SetWebhook(_ context.Context, _ SetWebhookParams) error { return nil }

func (s *RecordingSink) DeleteWebhook(_ context.Context, _ bool) error { return nil }

func (s *RecordingSink) GetWebhookInfo(_ context.Context) (WebhookInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.WebhookInfo, nil
}

func (s *RecordingSink) GetUpdates(_ context.Context, _ int64, _ int) ([]byte, error) {
	return []byte(`[]`), nil
}

var _ Client = (*RecordingSink)(nil)
