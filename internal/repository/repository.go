package repository

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction представляет аудит-запись одного завершённого вызова PayPal.
// Создаётся один раз после разбора ответа и больше не изменяется.
// Ровно одна из пар заполнена: CorrelationID+PayKey (успех) или ErrorCode+ErrorMessage (ошибка).
type Transaction struct {
	ID        string
	Operation string
	IsSandbox bool
	Ack       string

	RawRequest   string
	RawResponse  string
	ResponseTime time.Duration

	CorrelationID string
	PayKey        string

	Amount   decimal.NullDecimal
	Currency string

	ErrorCode    string
	ErrorMessage string

	CreatedAt time.Time
}

// IsSuccessful сообщает, завершился ли вызов успехом
func (t Transaction) IsSuccessful() bool {
	return t.ErrorCode == "" && t.CorrelationID != ""
}

// ResponseTimeMs время ответа PayPal в миллисекундах
func (t Transaction) ResponseTimeMs() float64 {
	return float64(t.ResponseTime.Microseconds()) / 1000.0
}

// Value возвращает поле сохранённого ответа PayPal и признак его наличия.
// При повторе ключа возвращается первое значение.
func (t Transaction) Value(key string) (string, bool) {
	values, _ := url.ParseQuery(t.RawResponse)
	vals, ok := values[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// RedirectURL возвращает адрес, на который отправляется покупатель для подтверждения платежа.
// Пустая строка, если pay key отсутствует.
func (t Transaction) RedirectURL() string {
	if t.PayKey == "" {
		return ""
	}
	host := "https://www.paypal.com"
	if t.IsSandbox {
		host = "https://www.sandbox.paypal.com"
	}
	q := url.Values{}
	q.Set("cmd", "_ap-payment")
	q.Set("paykey", t.PayKey)
	return host + "/webscr?" + q.Encode()
}

// OutboxEvent представляет событие в outbox таблице
type OutboxEvent struct {
	EventID     string
	EventType   string
	AggregateID string // transaction id
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int
	LastError   string
	CreatedAt   time.Time
}

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=TransactionRepository --dir=. --output=./mocks --outpkg=mocks

// TransactionRepository: append-only хранилище аудит-записей.
// Обновления и удаления не предусмотрены.
type TransactionRepository interface {
	// Save сохраняет запись и событие о ней.
	// Возвращает ErrAlreadyExists, если запись с таким ID уже есть.
	Save(ctx context.Context, tx Transaction) error

	// GetByID получает запись по ID
	// Возвращает ErrNotFound, если записи нет
	GetByID(ctx context.Context, id string) (Transaction, error)

	// ListByPayKey возвращает все записи по pay key в порядке создания
	ListByPayKey(ctx context.Context, payKey string) ([]Transaction, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=OutboxRepository --dir=. --output=./mocks --outpkg=mocks

// OutboxRepository даёт dispatcher-у доступ к неопубликованным событиям
type OutboxRepository interface {
	GetPendingOutboxEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkOutboxEventSent(ctx context.Context, eventID string) error
	MarkOutboxEventFailed(ctx context.Context, eventID string, errMsg string) error
	ResetOutboxEventPending(ctx context.Context, eventID string) error
}

var (
	// ErrNotFound возвращается, когда запись не найдена в хранилище
	ErrNotFound = errors.New("transaction not found")
	// ErrAlreadyExists возвращается при повторной записи того же ID
	ErrAlreadyExists = errors.New("transaction already recorded")
)
