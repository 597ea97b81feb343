package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
	"github.com/shestoi/paypal-adaptive/internal/repository"
)

const (
	// ErrorCodeMalformedResponse: успешный ответ без correlation id или pay key
	ErrorCodeMalformedResponse = "MALFORMED_RESPONSE"
	// ErrorCodeUnknown: ответ с ошибкой, но без её описания
	ErrorCodeUnknown = "UNKNOWN"
)

// successAcks: значения ack, означающие успешный вызов
var successAcks = map[string]struct{}{
	"Success":            {},
	"SuccessWithWarning": {},
}

// recordMeta: данные вызова, которых нет в ответе PayPal
type recordMeta struct {
	// payKeyFields поля ответа с pay key/token в порядке приоритета
	payKeyFields []string
	// reference значение от вызывающего, если ответ его не вернул
	reference string
	amount    decimal.NullDecimal
	currency  string
}

// echo-поля, из которых берутся сумма и валюта, если вызывающий их не передал
var (
	amountEchoFields   = []string{"AMT", "GROSSREFUNDAMT"}
	currencyEchoFields = []string{"currencyCode", "CURRENCYCODE"}
)

// buildTransaction классифицирует ответ и собирает аудит-запись.
// Из списка ошибок берётся только первая; остальные отбрасываются.
func buildTransaction(id string, now time.Time, sandbox bool, resp *paypal.Response, meta recordMeta) repository.Transaction {
	tx := repository.Transaction{
		ID:           id,
		Operation:    string(resp.Operation),
		IsSandbox:    sandbox,
		Ack:          resp.Ack(),
		RawRequest:   resp.RawRequest,
		RawResponse:  resp.RawResponse,
		ResponseTime: resp.Elapsed,
		Amount:       meta.amount,
		Currency:     meta.currency,
		CreatedAt:    now,
	}

	if !tx.Amount.Valid {
		for _, key := range amountEchoFields {
			if v, present, err := resp.Decimal(key); present && err == nil && amountFits(v) {
				tx.Amount = decimal.NewNullDecimal(v)
				break
			}
		}
	}
	if tx.Currency == "" {
		for _, key := range currencyEchoFields {
			if v, ok := resp.Get(key); ok && isCurrencyCode(v) {
				tx.Currency = v
				break
			}
		}
	}

	if _, ok := successAcks[tx.Ack]; !ok {
		tx.ErrorCode, tx.ErrorMessage = ErrorCodeUnknown, "PayPal returned ack "+quoteAck(tx.Ack)+" without error details"
		if errs := resp.Errors(); len(errs) > 0 {
			tx.ErrorCode, tx.ErrorMessage = errs[0].Code, errs[0].Message
			if tx.ErrorCode == "" {
				tx.ErrorCode = ErrorCodeUnknown
			}
			if tx.ErrorMessage == "" {
				tx.ErrorMessage = "PayPal returned ack " + quoteAck(tx.Ack) + " without error message"
			}
		}
		return tx
	}

	tx.CorrelationID = resp.CorrelationID()
	for _, key := range meta.payKeyFields {
		if v, ok := resp.Get(key); ok && v != "" {
			tx.PayKey = v
			break
		}
	}
	if tx.PayKey == "" {
		tx.PayKey = meta.reference
	}

	if tx.CorrelationID == "" || tx.PayKey == "" {
		missing := "correlation id"
		if tx.CorrelationID != "" {
			missing = "pay key"
		}
		tx.CorrelationID, tx.PayKey = "", ""
		tx.ErrorCode = ErrorCodeMalformedResponse
		tx.ErrorMessage = "PayPal success response has no " + missing
	}
	return tx
}

func quoteAck(ack string) string {
	if ack == "" {
		return "<empty>"
	}
	return ack
}
