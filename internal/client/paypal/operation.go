package paypal

import (
	"fmt"
	"strings"
)

// Operation: операция PayPal, которую выполняет клиент
type Operation string

const (
	// OperationCreate создаёт платёж (AdaptivePayments/Pay)
	OperationCreate Operation = "create"
	// OperationGetDetails читает состояние платежа (AdaptivePayments/PaymentDetails)
	OperationGetDetails Operation = "get-details"
	// OperationExecute подтверждает отложенный платёж (AdaptivePayments/ExecutePayment)
	OperationExecute Operation = "execute"
	// OperationCapture списывает авторизованную сумму (NVP DoCapture)
	OperationCapture Operation = "capture"
	// OperationVoid отменяет авторизацию (NVP DoVoid)
	OperationVoid Operation = "void"
	// OperationRefund возвращает деньги по транзакции (NVP RefundTransaction)
	OperationRefund Operation = "refund"
)

const (
	adaptiveSandboxURL    = "https://svcs.sandbox.paypal.com/AdaptivePayments"
	adaptiveProductionURL = "https://svcs.paypal.com/AdaptivePayments"
	nvpSandboxURL         = "https://api-3t.sandbox.paypal.com/nvp"
	nvpProductionURL      = "https://api-3t.paypal.com/nvp"
)

// adaptivePaths: суффиксы путей Adaptive Payments API
var adaptivePaths = map[Operation]string{
	OperationCreate:     "Pay",
	OperationGetDetails: "PaymentDetails",
	OperationExecute:    "ExecutePayment",
}

// nvpMethods: значения METHOD для classic NVP API
var nvpMethods = map[Operation]string{
	OperationCapture: "DoCapture",
	OperationVoid:    "DoVoid",
	OperationRefund:  "RefundTransaction",
}

// ParseOperation преобразует строку в Operation
func ParseOperation(s string) (Operation, error) {
	op := Operation(s)
	if _, ok := adaptivePaths[op]; ok {
		return op, nil
	}
	if _, ok := nvpMethods[op]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown paypal operation: %q", s)
}

// IsNVP сообщает, относится ли операция к classic NVP API
func (o Operation) IsNVP() bool {
	_, ok := nvpMethods[o]
	return ok
}

// Endpoint возвращает URL операции для окружения из конфигурации
func (c Config) Endpoint(op Operation) (string, error) {
	if path, ok := adaptivePaths[op]; ok {
		base := c.AdaptiveBaseURL
		if base == "" {
			base = adaptiveProductionURL
			if c.Sandbox {
				base = adaptiveSandboxURL
			}
		}
		return strings.TrimRight(base, "/") + "/" + path, nil
	}
	if _, ok := nvpMethods[op]; ok {
		if c.NVPURL != "" {
			return c.NVPURL, nil
		}
		if c.Sandbox {
			return nvpSandboxURL, nil
		}
		return nvpProductionURL, nil
	}
	return "", fmt.Errorf("unknown paypal operation: %q", op)
}
