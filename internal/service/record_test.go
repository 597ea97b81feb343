package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
)

func TestBuildTransaction(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success extracts pay key and correlation id", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationCreate, "actionType=CREATE",
			"responseEnvelope.ack=Success&payKey=AP-123&responseEnvelope.correlationId=abc", 120*time.Millisecond)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{
			payKeyFields: []string{"payKey"},
			amount:       decimal.NewNullDecimal(d("110.00")),
			currency:     "GBP",
		})

		assert.True(t, tx.IsSuccessful())
		assert.Equal(t, "AP-123", tx.PayKey)
		assert.Equal(t, "abc", tx.CorrelationID)
		assert.Empty(t, tx.ErrorCode)
		assert.Empty(t, tx.ErrorMessage)
		assert.Equal(t, "Success", tx.Ack)
		assert.Equal(t, "create", tx.Operation)
		assert.True(t, tx.IsSandbox)
		assert.True(t, d("110").Equal(tx.Amount.Decimal))
		assert.Equal(t, "GBP", tx.Currency)
		assert.Equal(t, "actionType=CREATE", tx.RawRequest)
		assert.Equal(t, 120*time.Millisecond, tx.ResponseTime)
		assert.Equal(t, now, tx.CreatedAt)
	})

	t.Run("success with warning is successful", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationCapture, "",
			"ACK=SuccessWithWarning&CORRELATIONID=c1&AUTHORIZATIONID=A1&L_ERRORCODE0=11607&L_LONGMESSAGE0=Duplicate", 0)

		tx := buildTransaction("tx-1", now, false, resp, recordMeta{payKeyFields: []string{"AUTHORIZATIONID"}})

		assert.True(t, tx.IsSuccessful())
		assert.Equal(t, "A1", tx.PayKey)
		assert.Equal(t, "c1", tx.CorrelationID)
	})

	t.Run("failure keeps only the first error", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationCreate, "",
			"responseEnvelope.ack=Failure&error(0).errorId=520009&error(0).message=Bad&error(1).errorId=1&error(1).message=Other", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{payKeyFields: []string{"payKey"}})

		assert.False(t, tx.IsSuccessful())
		assert.Equal(t, "520009", tx.ErrorCode)
		assert.Equal(t, "Bad", tx.ErrorMessage)
		assert.Empty(t, tx.PayKey)
		assert.Empty(t, tx.CorrelationID)
	})

	t.Run("nvp failure is normalized", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationRefund, "",
			"ACK=Failure&CORRELATIONID=c1&L_ERRORCODE0=10009&L_LONGMESSAGE0=Refused", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{payKeyFields: []string{"REFUNDTRANSACTIONID"}, reference: "T1"})

		assert.False(t, tx.IsSuccessful())
		assert.Equal(t, "10009", tx.ErrorCode)
		assert.Equal(t, "Refused", tx.ErrorMessage)
		assert.Empty(t, tx.PayKey)
	})

	t.Run("failure without details gets UNKNOWN code", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationExecute, "", "responseEnvelope.ack=Failure", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{})

		assert.False(t, tx.IsSuccessful())
		assert.Equal(t, ErrorCodeUnknown, tx.ErrorCode)
		assert.NotEmpty(t, tx.ErrorMessage)
	})

	t.Run("failure with code but no message gets fallback message", func(t *testing.T) {
		adaptive := paypal.NewResponse(paypal.OperationCreate, "",
			"responseEnvelope.ack=Failure&error(0).errorId=520009", 0)
		nvp := paypal.NewResponse(paypal.OperationCapture, "",
			"ACK=Failure&CORRELATIONID=c1&L_ERRORCODE0=10600", 0)

		tx := buildTransaction("tx-1", now, true, adaptive, recordMeta{})
		assert.False(t, tx.IsSuccessful())
		assert.Equal(t, "520009", tx.ErrorCode)
		assert.Equal(t, "PayPal returned ack Failure without error message", tx.ErrorMessage)

		tx = buildTransaction("tx-2", now, true, nvp, recordMeta{})
		assert.Equal(t, "10600", tx.ErrorCode)
		assert.NotEmpty(t, tx.ErrorMessage)
	})

	t.Run("failure with message but no code gets UNKNOWN code", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationCreate, "",
			"responseEnvelope.ack=Failure&error(0).message=Bad", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{})

		assert.Equal(t, ErrorCodeUnknown, tx.ErrorCode)
		assert.Equal(t, "Bad", tx.ErrorMessage)
	})

	t.Run("echo that does not fit the record is ignored", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationVoid, "",
			"ACK=Success&CORRELATIONID=c&AUTHORIZATIONID=A1&AMT=10000000000.00&CURRENCYCODE=EURO", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{payKeyFields: []string{"AUTHORIZATIONID"}})

		assert.True(t, tx.IsSuccessful())
		assert.False(t, tx.Amount.Valid)
		assert.Empty(t, tx.Currency)
	})

	t.Run("success without pay key is malformed", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationCreate, "",
			"responseEnvelope.ack=Success&responseEnvelope.correlationId=abc", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{payKeyFields: []string{"payKey"}})

		assert.False(t, tx.IsSuccessful())
		assert.Equal(t, ErrorCodeMalformedResponse, tx.ErrorCode)
		assert.Contains(t, tx.ErrorMessage, "pay key")
		assert.Empty(t, tx.CorrelationID)
		assert.Empty(t, tx.PayKey)
	})

	t.Run("success without correlation id is malformed", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationCreate, "", "responseEnvelope.ack=Success&payKey=AP-1", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{payKeyFields: []string{"payKey"}})

		assert.Equal(t, ErrorCodeMalformedResponse, tx.ErrorCode)
		assert.Contains(t, tx.ErrorMessage, "correlation id")
	})

	t.Run("reference fills pay key when response omits it", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationExecute, "",
			"responseEnvelope.ack=Success&responseEnvelope.correlationId=abc&paymentExecStatus=COMPLETED", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{payKeyFields: []string{"payKey"}, reference: "AP-9"})

		assert.True(t, tx.IsSuccessful())
		assert.Equal(t, "AP-9", tx.PayKey)
	})

	t.Run("currency and amount echoed by provider when caller has none", func(t *testing.T) {
		resp := paypal.NewResponse(paypal.OperationGetDetails, "",
			"responseEnvelope.ack=Success&responseEnvelope.correlationId=abc&payKey=AP-1&currencyCode=USD", 0)

		tx := buildTransaction("tx-1", now, true, resp, recordMeta{payKeyFields: []string{"payKey"}})

		assert.Equal(t, "USD", tx.Currency)
		assert.False(t, tx.Amount.Valid)

		nvp := paypal.NewResponse(paypal.OperationVoid, "",
			"ACK=Success&CORRELATIONID=c&AUTHORIZATIONID=A1&AMT=9.99&CURRENCYCODE=EUR", 0)
		tx = buildTransaction("tx-2", now, true, nvp, recordMeta{payKeyFields: []string{"AUTHORIZATIONID"}})
		assert.Equal(t, "EUR", tx.Currency)
		assert.True(t, tx.Amount.Valid)
		assert.True(t, d("9.99").Equal(tx.Amount.Decimal))
	})
}
