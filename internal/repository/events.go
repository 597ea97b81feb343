package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventTypeTransactionRecorded: тип события о новой аудит-записи
const EventTypeTransactionRecorded = "paypal.transaction.recorded"

// TransactionRecordedEvent: payload события в Kafka
type TransactionRecordedEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	EventVersion  int       `json:"event_version"`
	OccurredAt    time.Time `json:"occurred_at"`
	TransactionID string    `json:"transaction_id"`
	Operation     string    `json:"operation"`
	IsSandbox     bool      `json:"is_sandbox"`
	Ack           string    `json:"ack"`
	Successful    bool      `json:"successful"`
	PayKey        string    `json:"pay_key,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Amount        *string   `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	ErrorCode     string    `json:"error_code,omitempty"`
}

// NewTransactionRecordedEvent собирает outbox событие для записи tx
func NewTransactionRecordedEvent(tx Transaction, topic string) (OutboxEvent, error) {
	payload := TransactionRecordedEvent{
		EventID:       uuid.NewString(),
		EventType:     EventTypeTransactionRecorded,
		EventVersion:  1,
		OccurredAt:    tx.CreatedAt.UTC(),
		TransactionID: tx.ID,
		Operation:     tx.Operation,
		IsSandbox:     tx.IsSandbox,
		Ack:           tx.Ack,
		Successful:    tx.IsSuccessful(),
		PayKey:        tx.PayKey,
		CorrelationID: tx.CorrelationID,
		Currency:      tx.Currency,
		ErrorCode:     tx.ErrorCode,
	}
	if tx.Amount.Valid {
		amount := tx.Amount.Decimal.StringFixed(2)
		payload.Amount = &amount
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("marshal %s: %w", EventTypeTransactionRecorded, err)
	}

	return OutboxEvent{
		EventID:     payload.EventID,
		EventType:   EventTypeTransactionRecorded,
		AggregateID: tx.ID,
		Topic:       topic,
		Payload:     data,
		Status:      OutboxStatusPending,
		CreatedAt:   tx.CreatedAt,
	}, nil
}
