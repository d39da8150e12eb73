package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/starvault/casebot/internal/app/domain/payment"
)

func TestEncodeDecodePayload_RoundTrips(t *testing.T) {
	key := []byte("fairness-key-fairness-key-123456")
	now := time.Unix(1700000000, 0)
	payload := domain.InvoicePayload{CaseID: "starter", UserID: "user-1", Nonce: "nonce-1", Exp: now.Add(time.Hour).Unix()}

	encoded, err := EncodePayload(key, payload)
	require.NoError(t, err)

	decoded, err := DecodePayload(key, encoded, now)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestDecodePayload_RejectsTamperedSignature(t *testing.T) {
	key := []byte("fairness-key-fairness-key-123456")
	now := time.Unix(1700000000, 0)
	payload := domain.InvoicePayload{CaseID: "starter", UserID: "user-1", Nonce: "nonce-1", Exp: now.Add(time.Hour).Unix()}

	encoded, err := EncodePayload(key, payload)
	require.NoError(t, err)

	_, err = DecodePayload([]byte("a-different-key-entirely-00000000"), encoded, now)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecodePayload_RejectsExpired(t *testing.T) {
	key := []byte("fairness-key-fairness-key-123456")
	now := time.Unix(1700000000, 0)
	payload := domain.InvoicePayload{CaseID: "starter", UserID: "user-1", Nonce: "nonce-1", Exp: now.Add(-time.Minute).Unix()}

	encoded, err := EncodePayload(key, payload)
	require.NoError(t, err)

	_, err = DecodePayload(key, encoded, now)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
