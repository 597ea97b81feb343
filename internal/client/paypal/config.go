package paypal

import "time"

// Config содержит учётные данные и параметры подключения к PayPal.
// Заполняется из переменных окружения через caarlos0/env (см. internal/config).
type Config struct {
	// Username, Password, Signature: API credentials продавца
	Username  string `env:"PAYPAL_API_USERNAME"`
	Password  string `env:"PAYPAL_API_PASSWORD"`
	Signature string `env:"PAYPAL_API_SIGNATURE"`
	// ApplicationID: идентификатор приложения Adaptive Payments (APP-...)
	ApplicationID string `env:"PAYPAL_API_APPLICATION_ID"`
	// Sandbox выбирает sandbox или production endpoints
	Sandbox bool `env:"PAYPAL_SANDBOX_MODE" envDefault:"true"`
	// APIVersion версия classic NVP API (DoCapture, DoVoid, RefundTransaction)
	APIVersion string `env:"PAYPAL_API_VERSION" envDefault:"119"`
	// Timeout таймаут одного HTTP запроса к PayPal
	Timeout time.Duration `env:"PAYPAL_HTTP_TIMEOUT" envDefault:"30s"`

	// AdaptiveBaseURL и NVPURL переопределяют endpoints (тесты, прокси).
	// При пустом значении используется таблица sandbox/production.
	AdaptiveBaseURL string `env:"PAYPAL_ADAPTIVE_URL"`
	NVPURL          string `env:"PAYPAL_NVP_URL"`
}
