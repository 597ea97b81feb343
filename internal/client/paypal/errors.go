package paypal

import "fmt"

// CommunicationError означает, что PayPal недоступен: сетевая ошибка, таймаут или не-2xx статус.
// Ответ при этом не разбирается и не аудируется.
type CommunicationError struct {
	Operation Operation
	// StatusCode HTTP статус ответа, 0 если ответа не было
	StatusCode int
	Err        error
}

func (e *CommunicationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unable to communicate with PayPal: %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("unable to communicate with PayPal: %s: %v", e.Operation, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}
