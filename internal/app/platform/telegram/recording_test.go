package telegram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingSink_SendInvoiceLink(t *testing.T) {
	sink := NewRecordingSink()
	link, err := sink.SendInvoiceLink(context.Background(), "Starter Case", "A case", "payload-1", "XTR", 100)
	require.NoError(t, err)
	assert.Contains(t, link, "payload-1")
	require.Len(t, sink.Invoices, 1)
	assert.Equal(t, int64(100), sink.Invoices[0].Amount)
}

func TestRecordingSink_RefundFailureConfigurable(t *testing.T) {
	sink := NewRecordingSink()
	sink.FailRefund = true
	err := sink.RefundStarPayment(context.Background(), "user-1", "charge-1")
	assert.Error(t, err)
	assert.Empty(t, sink.Refunds)
}
