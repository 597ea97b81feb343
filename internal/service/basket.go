package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Partner представляет продавца, которому принадлежит товар в корзине
type Partner struct {
	// PayPalEmail идентификатор получателя выплаты в PayPal
	PayPalEmail string
	// CommissionPercent комиссия площадки в процентах от суммы строки
	CommissionPercent decimal.Decimal
}

// BasketLine: строка корзины
type BasketLine struct {
	ProductID        string
	Quantity         int64
	UnitPriceExclTax decimal.Decimal
	Partner          Partner
	// IsTopUp означает пополнение: вся сумма уходит партнёру без комиссии площадки
	IsTopUp bool
}

// Basket представляет корзину покупателя
type Basket struct {
	ID       string
	Currency string
	Lines    []BasketLine
}

// Payee представляет получателя части платежа
type Payee struct {
	Identifier string
	Amount     decimal.Decimal
	Currency   string
	Primary    bool
}

var hundred = decimal.NewFromInt(100)

// maxAmount наибольшая сумма, которую вмещает колонка amount аудит-записи (NUMERIC(12, 2))
var maxAmount = decimal.RequireFromString("9999999999.99")

// isCurrencyCode проверяет трёхбуквенный код ISO 4217 в верхнем регистре
func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// amountFits сообщает, поместится ли округлённая сумма в аудит-запись
func amountFits(d decimal.Decimal) bool {
	return roundCurrency(d).Abs().LessThanOrEqual(maxAmount)
}

// roundCurrency округляет до двух знаков, половину от нуля
func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// lineAmount сумма строки без налога, округлённая до копеек
func lineAmount(line BasketLine) decimal.Decimal {
	return roundCurrency(line.UnitPriceExclTax.Mul(decimal.NewFromInt(line.Quantity)))
}

// Total сумма корзины: округление по строкам, затем сложение
func (b Basket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.Lines {
		total = total.Add(lineAmount(line))
	}
	return total
}

// Validate проверяет корзину перед созданием платежа и возвращает её сумму.
// maxUSD: верхняя граница суммы для корзин в USD.
func (b Basket) Validate(maxUSD decimal.Decimal) (decimal.Decimal, error) {
	if len(b.Lines) == 0 {
		return decimal.Zero, &InvalidBasketError{Reason: "basket is empty"}
	}
	if b.Currency == "" {
		return decimal.Zero, &InvalidBasketError{Reason: "basket currency is required"}
	}
	if !isCurrencyCode(b.Currency) {
		return decimal.Zero, &InvalidBasketError{Reason: fmt.Sprintf("basket currency %q is not a 3-letter code", b.Currency)}
	}
	for i, line := range b.Lines {
		if line.Quantity <= 0 {
			return decimal.Zero, &InvalidBasketError{Reason: fmt.Sprintf("line %d has non-positive quantity", i)}
		}
		if line.Partner.PayPalEmail == "" {
			return decimal.Zero, &InvalidBasketError{Reason: fmt.Sprintf("line %d partner has no PayPal account", i)}
		}
	}

	total := b.Total()
	if !total.IsPositive() {
		return decimal.Zero, &InvalidBasketError{Reason: "The basket total is zero so no payment is required"}
	}
	if !amountFits(total) {
		return decimal.Zero, &InvalidBasketError{Reason: fmt.Sprintf("basket total exceeds %s %s", maxAmount.String(), b.Currency)}
	}
	if b.Currency == "USD" && total.GreaterThan(maxUSD) {
		return decimal.Zero, &InvalidBasketError{Reason: fmt.Sprintf("PayPal can only be used for orders up to %s USD", maxUSD.String())}
	}
	return total, nil
}

// Receivers делит корзину между получателями.
// Обычная строка: комиссия уходит площадке (platformEmail), вся сумма строки уходит партнёру как primary.
// Пополнение: вся сумма строки уходит партнёру, не primary.
// Получатели с одинаковым идентификатором объединяются в порядке первого появления.
// Нулевая комиссия площадки не создаёт получателя: при 0% партнёр остаётся единственным.
func Receivers(b Basket, platformEmail string) []Payee {
	acc := newPayeeAccumulator(b.Currency)
	for _, line := range b.Lines {
		amount := lineAmount(line)
		if line.IsTopUp {
			acc.add(line.Partner.PayPalEmail, amount, false)
			continue
		}
		commission := roundCurrency(amount.Mul(line.Partner.CommissionPercent).Div(hundred))
		acc.add(platformEmail, commission, false)
		acc.add(line.Partner.PayPalEmail, amount, true)
	}
	return acc.payees
}

type payeeAccumulator struct {
	currency string
	index    map[string]int
	payees   []Payee
}

func newPayeeAccumulator(currency string) *payeeAccumulator {
	return &payeeAccumulator{
		currency: currency,
		index:    make(map[string]int),
		payees:   make([]Payee, 0),
	}
}

func (a *payeeAccumulator) add(identifier string, amount decimal.Decimal, primary bool) {
	if i, ok := a.index[identifier]; ok {
		a.payees[i].Amount = a.payees[i].Amount.Add(amount)
		a.payees[i].Primary = a.payees[i].Primary || primary
		return
	}
	// нулевая комиссия не создаёт получателя
	if amount.IsZero() && !primary {
		return
	}
	a.index[identifier] = len(a.payees)
	a.payees = append(a.payees, Payee{
		Identifier: identifier,
		Amount:     amount,
		Currency:   a.currency,
		Primary:    primary,
	})
}
