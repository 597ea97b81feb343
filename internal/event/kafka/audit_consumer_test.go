package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shestoi/paypal-adaptive/internal/repository"
)

func TestDecodeAuditEvent(t *testing.T) {
	t.Run("decodes outbox payload", func(t *testing.T) {
		tx := repository.Transaction{
			ID:            "tx-1",
			Operation:     "create",
			Ack:           "Success",
			CorrelationID: "corr",
			PayKey:        "AP-1",
			Amount:        decimal.NewNullDecimal(decimal.RequireFromString("110")),
			Currency:      "GBP",
			CreatedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
		outbox, err := repository.NewTransactionRecordedEvent(tx, "topic")
		require.NoError(t, err)

		event, err := DecodeAuditEvent(kafka.Message{Value: outbox.Payload})

		require.NoError(t, err)
		assert.Equal(t, outbox.EventID, event.EventID)
		assert.Equal(t, "tx-1", event.TransactionID)
		assert.True(t, event.Successful)
		require.NotNil(t, event.Amount)
		assert.Equal(t, "110.00", *event.Amount)
	})

	t.Run("rejects foreign event type", func(t *testing.T) {
		_, err := DecodeAuditEvent(kafka.Message{Value: []byte(`{"event_type":"order.paid","transaction_id":"x"}`)})

		require.Error(t, err)
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		_, err := DecodeAuditEvent(kafka.Message{Value: []byte(`{`)})

		require.Error(t, err)
	})
}
