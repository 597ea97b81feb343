package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const platformEmail = "platform@example.com"

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(email, commission, price string, qty int64, topUp bool) BasketLine {
	return BasketLine{
		Quantity:         qty,
		UnitPriceExclTax: d(price),
		Partner:          Partner{PayPalEmail: email, CommissionPercent: d(commission)},
		IsTopUp:          topUp,
	}
}

func assertPayee(t *testing.T, want Payee, got Payee) {
	t.Helper()
	assert.Equal(t, want.Identifier, got.Identifier)
	assert.True(t, want.Amount.Equal(got.Amount), "amount for %s: want %s, got %s", want.Identifier, want.Amount, got.Amount)
	assert.Equal(t, want.Primary, got.Primary, "primary for %s", want.Identifier)
}

func TestReceivers(t *testing.T) {
	t.Run("commission goes to platform, line amount to partner as primary", func(t *testing.T) {
		basket := Basket{Currency: "GBP", Lines: []BasketLine{
			line("seller@example.com", "10", "50.00", 2, false),
		}}

		payees := Receivers(basket, platformEmail)

		require.Len(t, payees, 2)
		assertPayee(t, Payee{Identifier: platformEmail, Amount: d("10.00"), Primary: false}, payees[0])
		assertPayee(t, Payee{Identifier: "seller@example.com", Amount: d("100.00"), Primary: true}, payees[1])
		assert.Equal(t, "GBP", payees[1].Currency)
	})

	t.Run("top-up goes to partner without commission and is not primary", func(t *testing.T) {
		basket := Basket{Currency: "GBP", Lines: []BasketLine{
			line("topup@example.com", "10", "20.00", 1, true),
		}}

		payees := Receivers(basket, platformEmail)

		require.Len(t, payees, 1)
		assertPayee(t, Payee{Identifier: "topup@example.com", Amount: d("20.00"), Primary: false}, payees[0])
	})

	t.Run("lines sharing an identifier are aggregated and primary sticks", func(t *testing.T) {
		basket := Basket{Currency: "GBP", Lines: []BasketLine{
			line("seller@example.com", "0", "5.00", 1, true),
			line("seller@example.com", "10", "10.00", 1, false),
			line("seller@example.com", "10", "2.50", 2, true),
		}}

		payees := Receivers(basket, platformEmail)

		require.Len(t, payees, 2)
		assertPayee(t, Payee{Identifier: "seller@example.com", Amount: d("20.00"), Primary: true}, payees[0])
		assertPayee(t, Payee{Identifier: platformEmail, Amount: d("1.00"), Primary: false}, payees[1])
	})

	t.Run("rounding happens per line before summing", func(t *testing.T) {
		basket := Basket{Currency: "GBP", Lines: []BasketLine{
			line("seller@example.com", "0", "1.115", 1, true),
			line("seller@example.com", "0", "1.115", 1, true),
			line("seller@example.com", "0", "1.115", 1, true),
		}}

		payees := Receivers(basket, platformEmail)

		require.Len(t, payees, 1)
		// 3 × round(1.115) = 3.36, а round(3.345) дало бы 3.35
		assertPayee(t, Payee{Identifier: "seller@example.com", Amount: d("3.36")}, payees[0])
		assert.True(t, d("3.36").Equal(basket.Total()))
	})

	t.Run("commission rounds half away from zero", func(t *testing.T) {
		basket := Basket{Currency: "GBP", Lines: []BasketLine{
			line("seller@example.com", "12.5", "10.005", 1, false),
		}}

		payees := Receivers(basket, platformEmail)

		require.Len(t, payees, 2)
		// line = round(10.005) = 10.01; commission = round(1.25125) = 1.25
		assertPayee(t, Payee{Identifier: platformEmail, Amount: d("1.25")}, payees[0])
		assertPayee(t, Payee{Identifier: "seller@example.com", Amount: d("10.01"), Primary: true}, payees[1])
	})

	t.Run("zero commission does not create a platform payee", func(t *testing.T) {
		basket := Basket{Currency: "GBP", Lines: []BasketLine{
			line("seller@example.com", "0", "10.00", 1, false),
		}}

		payees := Receivers(basket, platformEmail)

		require.Len(t, payees, 1)
		assertPayee(t, Payee{Identifier: "seller@example.com", Amount: d("10.00"), Primary: true}, payees[0])
	})

	t.Run("many partners keep first-insertion order", func(t *testing.T) {
		basket := Basket{Currency: "USD", Lines: []BasketLine{
			line("a@example.com", "10", "10.00", 1, false),
			line("b@example.com", "20", "10.00", 1, false),
			line("c@example.com", "0", "3.00", 1, true),
			line("a@example.com", "10", "10.00", 1, false),
		}}

		first := Receivers(basket, platformEmail)
		second := Receivers(basket, platformEmail)

		require.Len(t, first, 4)
		assert.Equal(t, []string{platformEmail, "a@example.com", "b@example.com", "c@example.com"},
			[]string{first[0].Identifier, first[1].Identifier, first[2].Identifier, first[3].Identifier})
		assertPayee(t, Payee{Identifier: platformEmail, Amount: d("4.00")}, first[0])
		assertPayee(t, Payee{Identifier: "a@example.com", Amount: d("20.00"), Primary: true}, first[1])
		assertPayee(t, Payee{Identifier: "b@example.com", Amount: d("10.00"), Primary: true}, first[2])
		assertPayee(t, Payee{Identifier: "c@example.com", Amount: d("3.00")}, first[3])
		assert.Equal(t, first, second)
	})
}

func TestBasket_Validate(t *testing.T) {
	maxUSD := d("10000")

	cases := []struct {
		name    string
		basket  Basket
		wantErr string
	}{
		{
			name:    "empty basket",
			basket:  Basket{Currency: "GBP"},
			wantErr: "basket is empty",
		},
		{
			name:    "zero total",
			basket:  Basket{Currency: "GBP", Lines: []BasketLine{line("s@example.com", "10", "0.00", 1, false)}},
			wantErr: "The basket total is zero so no payment is required",
		},
		{
			name:    "negative total",
			basket:  Basket{Currency: "GBP", Lines: []BasketLine{line("s@example.com", "10", "-5.00", 1, false)}},
			wantErr: "The basket total is zero so no payment is required",
		},
		{
			name:    "usd over ceiling",
			basket:  Basket{Currency: "USD", Lines: []BasketLine{line("s@example.com", "10", "5000.01", 2, false)}},
			wantErr: "PayPal can only be used for orders up to 10000 USD",
		},
		{
			name:    "non-positive quantity",
			basket:  Basket{Currency: "GBP", Lines: []BasketLine{line("s@example.com", "10", "5.00", 0, false)}},
			wantErr: "line 0 has non-positive quantity",
		},
		{
			name:    "currency is not a 3-letter code",
			basket:  Basket{Currency: "EURO", Lines: []BasketLine{line("s@example.com", "10", "5.00", 1, false)}},
			wantErr: `basket currency "EURO" is not a 3-letter code`,
		},
		{
			name:    "lowercase currency",
			basket:  Basket{Currency: "gbp", Lines: []BasketLine{line("s@example.com", "10", "5.00", 1, false)}},
			wantErr: `basket currency "gbp" is not a 3-letter code`,
		},
		{
			name:    "non-usd total too large to record",
			basket:  Basket{Currency: "JPY", Lines: []BasketLine{line("s@example.com", "10", "5000000000.00", 2, false)}},
			wantErr: "basket total exceeds 9999999999.99 JPY",
		},
		{
			name:    "missing currency",
			basket:  Basket{Lines: []BasketLine{line("s@example.com", "10", "5.00", 1, false)}},
			wantErr: "basket currency is required",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.basket.Validate(maxUSD)

			var basketErr *InvalidBasketError
			require.True(t, errors.As(err, &basketErr), "expected InvalidBasketError, got %v", err)
			assert.Equal(t, tc.wantErr, basketErr.Reason)
		})
	}

	t.Run("usd exactly at ceiling is allowed", func(t *testing.T) {
		basket := Basket{Currency: "USD", Lines: []BasketLine{line("s@example.com", "10", "5000.00", 2, false)}}

		total, err := basket.Validate(maxUSD)

		require.NoError(t, err)
		assert.True(t, d("10000").Equal(total))
	})

	t.Run("ceiling applies only to usd", func(t *testing.T) {
		basket := Basket{Currency: "EUR", Lines: []BasketLine{line("s@example.com", "10", "20000.00", 1, false)}}

		total, err := basket.Validate(maxUSD)

		require.NoError(t, err)
		assert.True(t, d("20000").Equal(total))
	})
}
