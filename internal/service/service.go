package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/paypal-adaptive/platform/observability"

	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
	"github.com/shestoi/paypal-adaptive/internal/repository"
)

// Config: параметры checkout, не зависящие от окружения PayPal
type Config struct {
	// PlatformPayPalEmail счёт площадки, на который уходит комиссия
	PlatformPayPalEmail string
	// MaxUSDAmount максимальная сумма корзины в USD
	MaxUSDAmount decimal.Decimal
	// ErrorLanguage язык сообщений об ошибках PayPal
	ErrorLanguage string
}

// PaymentService содержит бизнес-логику работы с PayPal Adaptive Payments.
// Каждый завершённый вызов PayPal сохраняется как аудит-запись ровно один раз.
type PaymentService struct {
	logger *zap.Logger
	cfg    Config
	client PayPalClient
	repo   repository.TransactionRepository
	now    func() time.Time
	newID  func() string
}

// NewPaymentService создаёт новый экземпляр PaymentService
func NewPaymentService(logger *zap.Logger, cfg Config, client PayPalClient, repo repository.TransactionRepository) *PaymentService {
	if cfg.ErrorLanguage == "" {
		cfg.ErrorLanguage = defaultErrorLanguage
	}
	return &PaymentService{
		logger: logger,
		cfg:    cfg,
		client: client,
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// CreatePaymentInput: данные для создания платежа
type CreatePaymentInput struct {
	Basket    Basket
	ReturnURL string
	CancelURL string
	// ActionType CREATE (по умолчанию), PAY или PAY_PRIMARY
	ActionType string
}

// CreatePaymentOutput: результат создания платежа
type CreatePaymentOutput struct {
	Transaction repository.Transaction
	Payees      []Payee
	// RedirectURL адрес, на который нужно отправить покупателя
	RedirectURL string
}

// CreatePayment проверяет корзину, делит сумму между получателями и создаёт платёж в PayPal.
// Некорректная корзина отклоняется до сетевого вызова.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentOutput, error) {
	logger := platformobservability.L(ctx, s.logger)

	switch in.ActionType {
	case "", ActionCreate, ActionPay, ActionPayPrimary:
	default:
		return nil, fmt.Errorf("%w: unsupported action type %q", ErrInvalidInput, in.ActionType)
	}
	if in.ReturnURL == "" || in.CancelURL == "" {
		return nil, fmt.Errorf("%w: return_url and cancel_url are required", ErrInvalidInput)
	}

	total, err := in.Basket.Validate(s.cfg.MaxUSDAmount)
	if err != nil {
		logger.Info("basket rejected", zap.String("basket_id", in.Basket.ID), zap.Error(err))
		return nil, err
	}

	payees := Receivers(in.Basket, s.cfg.PlatformPayPalEmail)
	req := PaymentRequest{
		ActionType:    in.ActionType,
		CurrencyCode:  in.Basket.Currency,
		ReturnURL:     in.ReturnURL,
		CancelURL:     in.CancelURL,
		Payees:        payees,
		ErrorLanguage: s.cfg.ErrorLanguage,
	}

	tx, _, err := s.call(ctx, paypal.OperationCreate, req.Fields(), recordMeta{
		payKeyFields: []string{"payKey"},
		amount:       decimal.NewNullDecimal(total),
		currency:     in.Basket.Currency,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("paypal payment created",
		zap.String("basket_id", in.Basket.ID),
		zap.String("pay_key", tx.PayKey),
		zap.String("amount", total.StringFixed(2)),
		zap.Int("payees", len(payees)),
	)

	return &CreatePaymentOutput{
		Transaction: tx,
		Payees:      payees,
		RedirectURL: tx.RedirectURL(),
	}, nil
}

// GetPaymentDetails читает состояние платежа по pay key
func (s *PaymentService) GetPaymentDetails(ctx context.Context, payKey string) (*repository.Transaction, error) {
	tx, _, err := s.paymentDetails(ctx, payKey)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ConfirmPayment читает состояние платежа и проверяет, что он завершён (status=COMPLETED).
// Незавершённый платёж возвращает ErrPaymentIncomplete; аудит-запись при этом сохранена.
func (s *PaymentService) ConfirmPayment(ctx context.Context, payKey string) (*repository.Transaction, error) {
	tx, resp, err := s.paymentDetails(ctx, payKey)
	if err != nil {
		return nil, err
	}

	status, _ := resp.Get("status")
	if status != "COMPLETED" {
		platformobservability.L(ctx, s.logger).Warn("paypal payment not completed",
			zap.String("pay_key", payKey),
			zap.String("status", status),
		)
		return nil, fmt.Errorf("%w: status %q", ErrPaymentIncomplete, status)
	}
	return &tx, nil
}

// ExecutePayment подтверждает платёж, созданный с actionType=CREATE
func (s *PaymentService) ExecutePayment(ctx context.Context, payKey string) (*repository.Transaction, error) {
	if payKey == "" {
		return nil, fmt.Errorf("%w: pay key is required", ErrInvalidInput)
	}

	var fields paypal.Fields
	fields.Add("payKey", payKey)
	fields.Add("requestEnvelope.errorLanguage", s.cfg.ErrorLanguage)

	tx, _, err := s.call(ctx, paypal.OperationExecute, fields, recordMeta{
		payKeyFields: []string{"payKey"},
		reference:    payKey,
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// CaptureInput: данные для списания авторизованной суммы
type CaptureInput struct {
	AuthorizationID string
	Amount          decimal.Decimal
	Currency        string
	// CompleteType Complete (по умолчанию) или NotComplete
	CompleteType string
	Note         string
}

// Capture списывает авторизованную сумму (DoCapture)
func (s *PaymentService) Capture(ctx context.Context, in CaptureInput) (*repository.Transaction, error) {
	if in.AuthorizationID == "" {
		return nil, fmt.Errorf("%w: authorization id is required", ErrInvalidInput)
	}
	if !in.Amount.IsPositive() || in.Currency == "" {
		return nil, fmt.Errorf("%w: positive amount and currency are required", ErrInvalidInput)
	}
	if err := checkAmount(in.Amount, in.Currency); err != nil {
		return nil, err
	}
	completeType := in.CompleteType
	switch completeType {
	case "":
		completeType = "Complete"
	case "Complete", "NotComplete":
	default:
		return nil, fmt.Errorf("%w: unsupported complete type %q", ErrInvalidInput, in.CompleteType)
	}

	amount := roundCurrency(in.Amount)
	var fields paypal.Fields
	fields.Add("AUTHORIZATIONID", in.AuthorizationID)
	fields.AddAmount("AMT", amount)
	fields.Add("CURRENCYCODE", in.Currency)
	fields.Add("COMPLETETYPE", completeType)
	if in.Note != "" {
		fields.Add("NOTE", in.Note)
	}

	tx, _, err := s.call(ctx, paypal.OperationCapture, fields, recordMeta{
		payKeyFields: []string{"AUTHORIZATIONID"},
		reference:    in.AuthorizationID,
		amount:       decimal.NewNullDecimal(amount),
		currency:     in.Currency,
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Void отменяет авторизацию (DoVoid)
func (s *PaymentService) Void(ctx context.Context, authorizationID, note string) (*repository.Transaction, error) {
	if authorizationID == "" {
		return nil, fmt.Errorf("%w: authorization id is required", ErrInvalidInput)
	}

	var fields paypal.Fields
	fields.Add("AUTHORIZATIONID", authorizationID)
	if note != "" {
		fields.Add("NOTE", note)
	}

	tx, _, err := s.call(ctx, paypal.OperationVoid, fields, recordMeta{
		payKeyFields: []string{"AUTHORIZATIONID"},
		reference:    authorizationID,
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// RefundInput: данные для возврата
type RefundInput struct {
	TransactionID string
	// Partial частичный возврат; для полного Amount и Currency не передаются
	Partial  bool
	Amount   decimal.Decimal
	Currency string
	Note     string
}

// Refund возвращает деньги по транзакции (RefundTransaction)
func (s *PaymentService) Refund(ctx context.Context, in RefundInput) (*repository.Transaction, error) {
	if in.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	var fields paypal.Fields
	fields.Add("TRANSACTIONID", in.TransactionID)
	meta := recordMeta{
		payKeyFields: []string{"REFUNDTRANSACTIONID"},
		reference:    in.TransactionID,
	}
	if in.Partial {
		if !in.Amount.IsPositive() || in.Currency == "" {
			return nil, fmt.Errorf("%w: partial refund requires positive amount and currency", ErrInvalidInput)
		}
		if err := checkAmount(in.Amount, in.Currency); err != nil {
			return nil, err
		}
		amount := roundCurrency(in.Amount)
		fields.Add("REFUNDTYPE", "Partial")
		fields.AddAmount("AMT", amount)
		fields.Add("CURRENCYCODE", in.Currency)
		meta.amount = decimal.NewNullDecimal(amount)
		meta.currency = in.Currency
	} else {
		fields.Add("REFUNDTYPE", "Full")
	}
	if in.Note != "" {
		fields.Add("NOTE", in.Note)
	}

	tx, _, err := s.call(ctx, paypal.OperationRefund, fields, meta)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// checkAmount отклоняет сумму или валюту, которые не поместятся в аудит-запись
func checkAmount(amount decimal.Decimal, currency string) error {
	if !isCurrencyCode(currency) {
		return fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidInput, currency)
	}
	if !amountFits(amount) {
		return fmt.Errorf("%w: amount exceeds %s", ErrInvalidInput, maxAmount.String())
	}
	return nil
}

// GetTransaction возвращает аудит-запись по ID
func (s *PaymentService) GetTransaction(ctx context.Context, id string) (*repository.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

// ListTransactions возвращает аудит-записи по pay key в порядке создания
func (s *PaymentService) ListTransactions(ctx context.Context, payKey string) ([]repository.Transaction, error) {
	if payKey == "" {
		return nil, fmt.Errorf("%w: pay key is required", ErrInvalidInput)
	}
	list, err := s.repo.ListByPayKey(ctx, payKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return list, nil
}

func (s *PaymentService) paymentDetails(ctx context.Context, payKey string) (repository.Transaction, *paypal.Response, error) {
	if payKey == "" {
		return repository.Transaction{}, nil, fmt.Errorf("%w: pay key is required", ErrInvalidInput)
	}

	var fields paypal.Fields
	fields.Add("actionType", "GET")
	fields.Add("payKey", payKey)
	fields.Add("requestEnvelope.errorLanguage", s.cfg.ErrorLanguage)

	return s.call(ctx, paypal.OperationGetDetails, fields, recordMeta{
		payKeyFields: []string{"payKey"},
		reference:    payKey,
	})
}

// call выполняет вызов PayPal, сохраняет аудит-запись и превращает неуспешный ответ в *ProviderError.
// При недоступности PayPal запись не создаётся.
func (s *PaymentService) call(ctx context.Context, op paypal.Operation, fields paypal.Fields, meta recordMeta) (repository.Transaction, *paypal.Response, error) {
	logger := platformobservability.L(ctx, s.logger).With(zap.String("operation", string(op)))

	resp, err := s.client.Do(ctx, op, fields)
	if err != nil {
		logger.Error("paypal call failed", zap.Error(err))
		return repository.Transaction{}, nil, fmt.Errorf("paypal %s: %w", op, err)
	}

	tx := buildTransaction(s.newID(), s.now(), s.client.IsSandbox(), resp, meta)
	if err := s.repo.Save(ctx, tx); err != nil {
		logger.Error("failed to save paypal transaction", zap.String("transaction_id", tx.ID), zap.Error(err))
		return repository.Transaction{}, nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	if !tx.IsSuccessful() {
		providerErr := &ProviderError{Code: tx.ErrorCode, Message: tx.ErrorMessage, TransactionID: tx.ID}
		logger.Error(providerErr.Error(),
			zap.String("transaction_id", tx.ID),
			zap.String("ack", tx.Ack),
		)
		return repository.Transaction{}, nil, providerErr
	}

	logger.Debug("paypal transaction recorded",
		zap.String("transaction_id", tx.ID),
		zap.String("correlation_id", tx.CorrelationID),
		zap.Float64("response_time_ms", tx.ResponseTimeMs()),
	)
	return tx, resp, nil
}
