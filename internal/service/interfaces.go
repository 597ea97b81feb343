package service

import (
	"context"

	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PayPalClient --dir=. --output=./mocks --outpkg=mocks

// PayPalClient определяет интерфейс для вызовов PayPal
// Service слой не знает о HTTP, заголовках и URL
type PayPalClient interface {
	// Do выполняет одну операцию и возвращает разобранный ответ
	// Недоступность PayPal возвращается как *paypal.CommunicationError
	Do(ctx context.Context, op paypal.Operation, fields paypal.Fields) (*paypal.Response, error)

	// IsSandbox сообщает, работает ли клиент с sandbox окружением
	IsSandbox() bool
}
