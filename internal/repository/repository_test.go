package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Value(t *testing.T) {
	tx := Transaction{RawResponse: "responseEnvelope.ack=Success&status=COMPLETED&status=ERROR&memo="}

	v, ok := tx.Value("status")
	assert.True(t, ok)
	assert.Equal(t, "COMPLETED", v)

	v, ok = tx.Value("memo")
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = tx.Value("missing")
	assert.False(t, ok)
}

func TestTransaction_RedirectURL(t *testing.T) {
	tx := Transaction{PayKey: "AP-123", IsSandbox: true}
	assert.Equal(t, "https://www.sandbox.paypal.com/webscr?cmd=_ap-payment&paykey=AP-123", tx.RedirectURL())

	tx.IsSandbox = false
	assert.Equal(t, "https://www.paypal.com/webscr?cmd=_ap-payment&paykey=AP-123", tx.RedirectURL())

	assert.Empty(t, Transaction{}.RedirectURL())
}

func TestTransaction_IsSuccessful(t *testing.T) {
	assert.True(t, Transaction{CorrelationID: "c", PayKey: "AP-1"}.IsSuccessful())
	assert.False(t, Transaction{ErrorCode: "520009", ErrorMessage: "Bad"}.IsSuccessful())
	assert.False(t, Transaction{CorrelationID: "c", ErrorCode: "MALFORMED_RESPONSE"}.IsSuccessful())
}

func TestNewTransactionRecordedEvent(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tx := Transaction{
		ID:           "tx-1",
		Operation:    "create",
		Ack:          "Failure",
		ErrorCode:    "520009",
		ErrorMessage: "Bad",
		Amount:       decimal.NewNullDecimal(decimal.RequireFromString("7.5")),
		Currency:     "USD",
		CreatedAt:    created,
	}

	event, err := NewTransactionRecordedEvent(tx, "topic-a")
	require.NoError(t, err)

	assert.Equal(t, "tx-1", event.AggregateID)
	assert.Equal(t, "topic-a", event.Topic)
	assert.Equal(t, OutboxStatusPending, event.Status)
	assert.NotEmpty(t, event.EventID)

	var payload TransactionRecordedEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, event.EventID, payload.EventID)
	assert.False(t, payload.Successful)
	assert.Equal(t, "520009", payload.ErrorCode)
	require.NotNil(t, payload.Amount)
	assert.Equal(t, "7.50", *payload.Amount)
	assert.True(t, created.Equal(payload.OccurredAt))
}
