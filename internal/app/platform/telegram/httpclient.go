package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	coresvc "github.com/starvault/casebot/internal/app/core/service"
)

const apiBase = "https://api.telegram.org/bot"

// HTTPClient implements Client against the real Bot API, rate-limited by
// golang.org/x/time/rate and retried per core/service.OutboundRetryPolicy on
// network errors and 5xx responses, grounded on
// infrastructure/ratelimit.RateLimiter's dual limiter shape.
type HTTPClient struct {
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      coresvc.RetryPolicy
}

// NewHTTPClient returns a Client for token, allowing up to ratePerSecond
// requests per second (burst 2x) against the Bot API.
func NewHTTPClient(token string, ratePerSecond float64) *HTTPClient {
	if ratePerSecond <= 0 {
		ratePerSecond = 30
	}
	return &HTTPClient{
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond*2)),
		retry:      coresvc.OutboundRetryPolicy,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if statusErr, ok := err.(*statusError); ok {
		return statusErr.status >= 500
	}
	return true
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("telegram: http %d: %s", e.status, e.body)
}

func (c *HTTPClient) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	err = coresvc.Retry(ctx, c.retry, isRetryable, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+c.token+"/"+method, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return &statusError{status: resp.StatusCode, body: string(raw)}
		}

		var apiResp apiResponse
		if err := json.Unmarshal(raw, &apiResp); err != nil {
			return err
		}
		if !apiResp.OK {
			return &statusError{status: resp.StatusCode, body: fmt.Sprintf("%s failed (%d): %s", method, apiResp.ErrorCode, apiResp.Description)}
		}
		result = apiResp.Result
		return nil
	})
	return result, err
}

func (c *HTTPClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", map[string]any{"chat_id": chatID, "text": text})
	return err
}

func (c *HTTPClient) SendInvoiceLink(ctx context.Context, title, description, payload, currency string, amount int64) (string, error) {
	raw, err := c.call(ctx, "createInvoiceLink", map[string]any{
		"title":       title,
		"description": description,
		"payload":     payload,
		"currency":    currency,
		"prices":      []map[string]any{{"label": title, "amount": amount}},
	})
	if err != nil {
		return "", err
	}
	var link string
	if err := json.Unmarshal(raw, &link); err != nil {
		return "", err
	}
	return link, nil
}

func (c *HTTPClient) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	params := map[string]any{"pre_checkout_query_id": queryID, "ok": ok}
	if !ok && errorMessage != "" {
		params["error_message"] = errorMessage
	}
	_, err := c.call(ctx, "answerPreCheckoutQuery", params)
	return err
}

func (c *HTTPClient) AnswerCallbackQuery(ctx context.Context, queryID string, text string) error {
	params := map[string]any{"callback_query_id": queryID}
	if text != "" {
		params["text"] = text
	}
	_, err := c.call(ctx, "answerCallbackQuery", params)
	return err
}

func (c *HTTPClient) RefundStarPayment(ctx context.Context, userID, telegramPaymentChargeID string) error {
	_, err := c.call(ctx, "refundStarPayment", map[string]any{
		"user_id":                    userID,
		"telegram_payment_charge_id": telegramPaymentChargeID,
	})
	return err
}

func (c *HTTPClient) SendGift(ctx context.Context, userID, giftID string) error {
	_, err := c.call(ctx, "sendGift", map[string]any{
		"user_id": userID,
		"gift_id": giftID,
	})
	return err
}

func (c *HTTPClient) GrantPremiumSubscription(ctx context.Context, userID string, months int) error {
	_, err := c.call(ctx, "giftPremiumSubscription", map[string]any{
		"user_id":     userID,
		"month_count": months,
	})
	return err
}

func (c *HTTPClient) SetWebhook(ctx context.Context, params SetWebhookParams) error {
	body := map[string]any{"url": params.URL}
	if params.SecretToken != "" {
		body["secret_token"] = params.SecretToken
	}
	if len(params.AllowedUpdates) > 0 {
		body["allowed_updates"] = params.AllowedUpdates
	}
	if params.MaxConnections > 0 {
		body["max_connections"] = params.MaxConnections
	}
	if params.DropPending {
		body["drop_pending_updates"] = true
	}
	_, err := c.call(ctx, "setWebhook", body)
	return err
}

func (c *HTTPClient) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": dropPending})
	return err
}

func (c *HTTPClient) GetWebhookInfo(ctx context.Context) (WebhookInfo, error) {
	raw, err := c.call(ctx, "getWebhookInfo", nil)
	if err != nil {
		return WebhookInfo{}, err
	}
	var wire struct {
		URL                  string   `json:"url"`
		HasCustomCertificate bool     `json:"has_custom_certificate"`
		PendingUpdateCount   int      `json:"pending_update_count"`
		LastErrorDate        int64    `json:"last_error_date"`
		LastErrorMessage     string   `json:"last_error_message"`
		MaxConnections       int      `json:"max_connections"`
		AllowedUpdates       []string `json:"allowed_updates"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return WebhookInfo{}, err
	}
	return WebhookInfo{
		URL:                  wire.URL,
		HasCustomCertificate: wire.HasCustomCertificate,
		PendingUpdateCount:   wire.PendingUpdateCount,
		LastErrorDate:        wire.LastErrorDate,
		LastErrorMessage:     wire.LastErrorMessage,
		MaxConnections:       wire.MaxConnections,
		AllowedUpdates:       wire.AllowedUpdates,
	}, nil
}

func (c *HTTPClient) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]byte, error) {
	raw, err := c.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": timeoutSec,
	})
	return raw, err
}

var _ Client = (*HTTPClient)(nil)
