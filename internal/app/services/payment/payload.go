package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domain "github.com/starvault/casebot/internal/app/domain/payment"
)

// ErrInvalidPayload is returned by DecodePayload when the payload is
// malformed, its signature doesn't verify, or it has expired.
var ErrInvalidPayload = errors.New("payment: invalid invoice payload")

// EncodePayload produces the tamper-evident invoicePayload format resolved
// in §9's Open Questions: base64url(json{c,u,n,exp}) + "." +
// hex(HMAC-SHA-256(fairnessKey, json)).
func EncodePayload(fairnessKey []byte, payload domain.InvoicePayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, fairnessKey)
	mac.Write(body)
	sig := mac.Sum(nil)
	return base64.URLEncoding.EncodeToString(body) + "." + hex.EncodeToString(sig), nil
}

// DecodePayload verifies and decodes a payload produced by EncodePayload,
// rejecting a tampered signature or an expired payload (Exp is a Unix
// timestamp compared against now).
func DecodePayload(fairnessKey []byte, encoded string, now time.Time) (domain.InvoicePayload, error) {
	dot := strings.IndexByte(encoded, '.')
	if dot < 0 {
		return domain.InvoicePayload{}, ErrInvalidPayload
	}
	body, err := base64.URLEncoding.DecodeString(encoded[:dot])
	if err != nil {
		return domain.InvoicePayload{}, ErrInvalidPayload
	}
	wantSig, err := hex.DecodeString(encoded[dot+1:])
	if err != nil {
		return domain.InvoicePayload{}, ErrInvalidPayload
	}

	mac := hmac.New(sha256.New, fairnessKey)
	mac.Write(body)
	gotSig := mac.Sum(nil)
	if !hmac.Equal(wantSig, gotSig) {
		return domain.InvoicePayload{}, ErrInvalidPayload
	}

	var payload domain.InvoicePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.InvoicePayload{}, ErrInvalidPayload
	}
	if payload.Exp > 0 && now.Unix() > payload.Exp {
		return domain.InvoicePayload{}, ErrInvalidPayload
	}
	return payload, nil
}
