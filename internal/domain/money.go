package domain

import (
	"fmt"
	"strings"
)

const DefaultCurrency = "TRY"

// Money is a fixed-point amount in minor units (kuruş, cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}
}

func (m Money) IsNegative() bool { return m.Amount < 0 }

// Add sums two amounts of the same currency.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency == "" {
		return o, nil
	}
	if o.Currency != "" && o.Currency != m.Currency {
		return Money{}, Validation("currency mismatch: %s and %s", m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

// MulBasisPoints scales the amount by bp/10000, rounding half up.
func (m Money) MulBasisPoints(bp int64) Money {
	v := m.Amount * bp
	q := v / 10000
	if r := v % 10000; r*2 >= 10000 {
		q++
	} else if r*2 <= -10000 {
		q--
	}
	return Money{Amount: q, Currency: m.Currency}
}

func (m Money) String() string {
	sign := ""
	a := m.Amount
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, a/100, a%100, m.Currency)
}

// ValidCurrency reports whether code looks like an ISO-4217 code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
