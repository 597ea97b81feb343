package service

import (
	"errors"
	"fmt"

	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
)

// InvalidBasketError: корзина не проходит бизнес-проверки (пустая, нулевая сумма, превышен лимит).
// Возвращается до любого сетевого вызова.
type InvalidBasketError struct {
	Reason string
}

func (e *InvalidBasketError) Error() string {
	return "invalid basket: " + e.Reason
}

// ProviderError: PayPal обработал запрос, но вернул ошибку.
// Аудит-запись к этому моменту уже сохранена.
type ProviderError struct {
	Code    string
	Message string
	// TransactionID: ID сохранённой аудит-записи
	TransactionID string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("Error %s - %s", e.Code, e.Message)
}

// CommunicationError означает, что PayPal недоступен; аудит-запись не создаётся
type CommunicationError = paypal.CommunicationError

var (
	// ErrPaymentIncomplete возвращается, когда платёж ещё не в статусе COMPLETED
	ErrPaymentIncomplete = errors.New("payment is not completed")
	// ErrInvalidInput возвращается при некорректных аргументах операции
	ErrInvalidInput = errors.New("invalid input")
)
