package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/paypal-adaptive/platform/observability"

	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
	"github.com/shestoi/paypal-adaptive/internal/repository"
	"github.com/shestoi/paypal-adaptive/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler содержит HTTP-обработчики checkout операций.
// Страницы и редиректы рендерит витрина; здесь только JSON.
type Handler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(paymentService *service.PaymentService, logger *zap.Logger) *Handler {
	return &Handler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// PartnerDTO продавец строки корзины
type PartnerDTO struct {
	PayPalEmail       string          `json:"paypal_email"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
}

// BasketLineDTO строка корзины в запросе
type BasketLineDTO struct {
	ProductID        string          `json:"product_id"`
	Quantity         int64           `json:"quantity"`
	UnitPriceExclTax decimal.Decimal `json:"unit_price_excl_tax"`
	Partner          PartnerDTO      `json:"partner"`
	IsTopUp          bool            `json:"is_top_up"`
}

// CreatePaymentRequest тело POST /adaptive/payments
type CreatePaymentRequest struct {
	BasketID   string          `json:"basket_id"`
	Currency   string          `json:"currency"`
	Lines      []BasketLineDTO `json:"lines"`
	ReturnURL  string          `json:"return_url"`
	CancelURL  string          `json:"cancel_url"`
	ActionType string          `json:"action_type,omitempty"`
}

// PayeeDTO получатель части платежа
type PayeeDTO struct {
	Identifier string `json:"identifier"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Primary    bool   `json:"primary"`
}

// TransactionDTO аудит-запись вызова PayPal
type TransactionDTO struct {
	ID             string  `json:"id"`
	Operation      string  `json:"operation"`
	IsSandbox      bool    `json:"is_sandbox"`
	Ack            string  `json:"ack"`
	Successful     bool    `json:"successful"`
	CorrelationID  string  `json:"correlation_id,omitempty"`
	PayKey         string  `json:"pay_key,omitempty"`
	Amount         *string `json:"amount,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	ErrorCode      string  `json:"error_code,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	ResponseTimeMs float64 `json:"response_time_ms"`
	RawRequest     string  `json:"raw_request"`
	RawResponse    string  `json:"raw_response"`
	CreatedAt      string  `json:"created_at"`
}

// CreatePaymentResponse ответ POST /adaptive/payments
type CreatePaymentResponse struct {
	Transaction TransactionDTO `json:"transaction"`
	Payees      []PayeeDTO     `json:"payees"`
	RedirectURL string         `json:"redirect_url"`
}

// CaptureRequest тело POST /adaptive/authorizations/{id}/capture
type CaptureRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	CompleteType string          `json:"complete_type,omitempty"`
	Note         string          `json:"note,omitempty"`
}

// VoidRequest тело POST /adaptive/authorizations/{id}/void (необязательное)
type VoidRequest struct {
	Note string `json:"note,omitempty"`
}

// RefundRequest тело POST /adaptive/transactions/{id}/refund.
// Без amount выполняется полный возврат.
type RefundRequest struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Note     string           `json:"note,omitempty"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error         string `json:"error"`
	Code          string `json:"code,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
}

// PostPayments обрабатывает POST /adaptive/payments - создание платежа по корзине
func (h *Handler) PostPayments(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, &ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	basket := service.Basket{
		ID:       req.BasketID,
		Currency: req.Currency,
		Lines:    make([]service.BasketLine, 0, len(req.Lines)),
	}
	for _, l := range req.Lines {
		basket.Lines = append(basket.Lines, service.BasketLine{
			ProductID:        l.ProductID,
			Quantity:         l.Quantity,
			UnitPriceExclTax: l.UnitPriceExclTax,
			Partner: service.Partner{
				PayPalEmail:       l.Partner.PayPalEmail,
				CommissionPercent: l.Partner.CommissionPercent,
			},
			IsTopUp: l.IsTopUp,
		})
	}

	out, err := h.paymentService.CreatePayment(r.Context(), service.CreatePaymentInput{
		Basket:     basket,
		ReturnURL:  req.ReturnURL,
		CancelURL:  req.CancelURL,
		ActionType: req.ActionType,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	payees := make([]PayeeDTO, 0, len(out.Payees))
	for _, p := range out.Payees {
		payees = append(payees, PayeeDTO{
			Identifier: p.Identifier,
			Amount:     p.Amount.StringFixed(2),
			Currency:   p.Currency,
			Primary:    p.Primary,
		})
	}

	h.writeJSON(w, r, http.StatusCreated, CreatePaymentResponse{
		Transaction: toTransactionDTO(out.Transaction),
		Payees:      payees,
		RedirectURL: out.RedirectURL,
	})
}

// GetPayment обрабатывает GET /adaptive/payments/{payKey}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request, payKey string) {
	tx, err := h.paymentService.GetPaymentDetails(r.Context(), payKey)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTransactionDTO(*tx))
}

// PostPaymentConfirm обрабатывает POST /adaptive/payments/{payKey}/confirm
func (h *Handler) PostPaymentConfirm(w http.ResponseWriter, r *http.Request, payKey string) {
	tx, err := h.paymentService.ConfirmPayment(r.Context(), payKey)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTransactionDTO(*tx))
}

// PostPaymentExecute обрабатывает POST /adaptive/payments/{payKey}/execute
func (h *Handler) PostPaymentExecute(w http.ResponseWriter, r *http.Request, payKey string) {
	tx, err := h.paymentService.ExecutePayment(r.Context(), payKey)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTransactionDTO(*tx))
}

// PostCapture обрабатывает POST /adaptive/authorizations/{id}/capture
func (h *Handler) PostCapture(w http.ResponseWriter, r *http.Request, authorizationID string) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, &ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	tx, err := h.paymentService.Capture(r.Context(), service.CaptureInput{
		AuthorizationID: authorizationID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		CompleteType:    req.CompleteType,
		Note:            req.Note,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTransactionDTO(*tx))
}

// PostVoid обрабатывает POST /adaptive/authorizations/{id}/void
func (h *Handler) PostVoid(w http.ResponseWriter, r *http.Request, authorizationID string) {
	var req VoidRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	tx, err := h.paymentService.Void(r.Context(), authorizationID, req.Note)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTransactionDTO(*tx))
}

// PostRefund обрабатывает POST /adaptive/transactions/{id}/refund
func (h *Handler) PostRefund(w http.ResponseWriter, r *http.Request, transactionID string) {
	var req RefundRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	in := service.RefundInput{
		TransactionID: transactionID,
		Currency:      req.Currency,
		Note:          req.Note,
	}
	if req.Amount != nil {
		in.Partial = true
		in.Amount = *req.Amount
	}

	tx, err := h.paymentService.Refund(r.Context(), in)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTransactionDTO(*tx))
}

// GetTransaction обрабатывает GET /transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := h.paymentService.GetTransaction(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, toTransactionDTO(*tx))
}

// ListTransactions обрабатывает GET /transactions?pay_key=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.paymentService.ListTransactions(r.Context(), r.URL.Query().Get("pay_key"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	out := make([]TransactionDTO, 0, len(list))
	for _, tx := range list {
		out = append(out, toTransactionDTO(tx))
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

// decodeOptional разбирает тело, если оно есть. При false ответ с ошибкой уже записан.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSON(w, r, http.StatusBadRequest, &ErrorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

// handleError переводит ошибку service слоя в HTTP статус
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	body := &ErrorResponse{
		Error:   err.Error(),
		TraceID: platformobservability.TraceID(r.Context()),
	}

	var providerErr *service.ProviderError
	if errors.As(err, &providerErr) {
		body.Code = providerErr.Code
		body.TransactionID = providerErr.TransactionID
	}

	if status >= http.StatusInternalServerError {
		h.log(r).Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		h.log(r).Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	h.writeJSON(w, r, status, body)
}

func statusFromError(err error) int {
	var basketErr *service.InvalidBasketError
	var providerErr *service.ProviderError
	var commErr *paypal.CommunicationError

	switch {
	case errors.As(err, &basketErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &providerErr):
		return http.StatusPaymentRequired
	case errors.As(err, &commErr):
		return http.StatusBadGateway
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPaymentIncomplete):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log(r).Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) log(r *http.Request) *zap.Logger {
	return platformobservability.LoggerFromContext(r.Context(), h.logger)
}

func toTransactionDTO(tx repository.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:             tx.ID,
		Operation:      tx.Operation,
		IsSandbox:      tx.IsSandbox,
		Ack:            tx.Ack,
		Successful:     tx.IsSuccessful(),
		CorrelationID:  tx.CorrelationID,
		PayKey:         tx.PayKey,
		Currency:       tx.Currency,
		ErrorCode:      tx.ErrorCode,
		ErrorMessage:   tx.ErrorMessage,
		ResponseTimeMs: tx.ResponseTimeMs(),
		RawRequest:     tx.RawRequest,
		RawResponse:    tx.RawResponse,
		CreatedAt:      tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if tx.Amount.Valid {
		amount := tx.Amount.Decimal.StringFixed(2)
		dto.Amount = &amount
	}
	return dto
}
