package service

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/shestoi/paypal-adaptive/internal/client/paypal"
)

const (
	// ActionCreate создаёт платёж, который затем подтверждается ExecutePayment
	ActionCreate = "CREATE"
	// ActionPay проводит платёж сразу после одобрения покупателем
	ActionPay = "PAY"
	// ActionPayPrimary оплачивает только primary получателя, остальных оплачивает ExecutePayment
	ActionPayPrimary = "PAY_PRIMARY"

	defaultErrorLanguage = "en_US"
)

// PaymentRequest: запрос на создание платежа Adaptive Payments.
// Не сохраняется напрямую; в аудит попадает только его сериализованная форма.
type PaymentRequest struct {
	ActionType    string
	CurrencyCode  string
	ReturnURL     string
	CancelURL     string
	Payees        []Payee
	ErrorLanguage string
}

// Fields сериализует запрос в поля формы.
// Получатели нумеруются в порядке следования: receiverList.receiver(N).amount/email/primary.
func (r PaymentRequest) Fields() paypal.Fields {
	actionType := r.ActionType
	if actionType == "" {
		actionType = ActionCreate
	}
	lang := r.ErrorLanguage
	if lang == "" {
		lang = defaultErrorLanguage
	}

	fields := make(paypal.Fields, 0, 5+3*len(r.Payees))
	fields.Add("actionType", actionType)
	fields.Add("cancelUrl", r.CancelURL)
	fields.Add("currencyCode", r.CurrencyCode)
	fields.Add("requestEnvelope.errorLanguage", lang)
	fields.Add("returnUrl", r.ReturnURL)
	for i, p := range r.Payees {
		fields.AddAmount(fmt.Sprintf("receiverList.receiver(%d).amount", i), p.Amount)
		fields.Add(fmt.Sprintf("receiverList.receiver(%d).email", i), p.Identifier)
		fields.Add(fmt.Sprintf("receiverList.receiver(%d).primary", i), strconv.FormatBool(p.Primary))
	}
	return fields
}

// ParseReceivers восстанавливает список получателей из полей receiverList.receiver(N).*
// Разбор идёт по индексам от нуля до первого отсутствующего email.
func ParseReceivers(values map[string]string, currency string) ([]Payee, error) {
	payees := make([]Payee, 0)
	for i := 0; ; i++ {
		email, ok := values[fmt.Sprintf("receiverList.receiver(%d).email", i)]
		if !ok {
			return payees, nil
		}

		rawAmount := values[fmt.Sprintf("receiverList.receiver(%d).amount", i)]
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("receiver %d amount %q: %w", i, rawAmount, err)
		}

		primary := false
		if rawPrimary, ok := values[fmt.Sprintf("receiverList.receiver(%d).primary", i)]; ok {
			primary, err = strconv.ParseBool(rawPrimary)
			if err != nil {
				return nil, fmt.Errorf("receiver %d primary %q: %w", i, rawPrimary, err)
			}
		}

		payees = append(payees, Payee{
			Identifier: email,
			Amount:     amount,
			Currency:   currency,
			Primary:    primary,
		})
	}
}
