package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Money is an immutable, non-negative amount tagged with a supported currency.
// Arithmetic is only defined between amounts of the same currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney validates amount and currency code and returns a Money value.
func NewMoney(amount decimal.Decimal, currencyCode string) (Money, error) {
	cur, err := ParseCurrency(currencyCode)
	if err != nil {
		return Money{}, err
	}
	return newMoney(amount, cur)
}

// NewMoneyFromFloat is NewMoney for float input. NaN and infinities are rejected.
func NewMoneyFromFloat(amount float64, currencyCode string) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, apperrors.Validation("amount", amount, "amount must be a finite number")
	}
	return NewMoney(decimal.NewFromFloat(amount), currencyCode)
}

// ParseMoney parses a decimal string such as "19.99".
func ParseMoney(amount, currencyCode string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, apperrors.Validation("amount", amount, "amount must be a decimal number")
	}
	return NewMoney(d, currencyCode)
}

// MustMoney is like ParseMoney but panics on error.
func MustMoney(amount, currencyCode string) Money {
	m, err := ParseMoney(amount, currencyCode)
	if err != nil {
		panic(err)
	}
	return m
}

func newMoney(amount decimal.Decimal, cur Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, apperrors.Validation("amount", amount.String(), "amount must be non-negative")
	}
	return Money{amount: amount, currency: cur}, nil
}

// Zero returns a zero amount in the given currency.
func Zero(cur Currency) Money {
	return Money{amount: decimal.Zero, currency: cur}
}

// Euros returns an EUR amount.
func Euros(amount float64) (Money, error) {
	return NewMoneyFromFloat(amount, "EUR")
}

// Dollars returns a USD amount.
func Dollars(amount float64) (Money, error) {
	return NewMoneyFromFloat(amount, "USD")
}

// Amount returns the exact decimal amount.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency of m.
func (m Money) Currency() Currency {
	return m.currency
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns m - other. It fails when the result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, apperrors.Validation("amount", result.String(), "subtraction would result in a negative amount")
	}
	return Money{amount: result, currency: m.currency}, nil
}

// Multiply scales m by a non-negative factor.
func (m Money) Multiply(factor float64) (Money, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 0 {
		return Money{}, apperrors.Validation("factor", factor, "factor must be a non-negative finite number")
	}
	return Money{amount: m.amount.Mul(decimal.NewFromFloat(factor)), currency: m.currency}, nil
}

// MultiplyInt scales m by a whole number of units.
func (m Money) MultiplyInt(n int) (Money, error) {
	if n < 0 {
		return Money{}, apperrors.Validation("factor", n, "factor must be non-negative")
	}
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(n))), currency: m.currency}, nil
}

// Divide splits m by a strictly positive divisor.
func (m Money) Divide(divisor float64) (Money, error) {
	if math.IsNaN(divisor) || math.IsInf(divisor, 0) || divisor <= 0 {
		return Money{}, apperrors.Validation("divisor", divisor, "divisor must be a positive finite number")
	}
	return Money{amount: m.amount.Div(decimal.NewFromFloat(divisor)), currency: m.currency}, nil
}

// Round rounds the amount to the currency's minor unit.
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(int32(m.currency.decimals)), currency: m.currency}
}

// Equal reports whether m and other have the same currency and amount.
// Amounts in different currencies are never equal.
func (m Money) Equal(other Money) bool {
	return m.currency.Equal(other.currency) && m.amount.Equal(other.amount)
}

// GreaterThan reports whether m > other.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// GreaterThanOrEqual reports whether m >= other.
func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThanOrEqual(other.amount), nil
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// LessThanOrEqual reports whether m <= other.
func (m Money) LessThanOrEqual(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.LessThanOrEqual(other.amount), nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// String formats the amount with two decimals followed by the code, e.g. "19.99 EUR".
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency.Code()
}

// Display formats m for humans using the currency's locale conventions,
// e.g. "$1,234.56" or "1 234,56 €".
func (m Money) Display() string {
	p := message.NewPrinter(m.currency.locale)
	digits := p.Sprint(number.Decimal(m.amount.InexactFloat64(), number.Scale(m.currency.decimals)))
	if m.currency.pattern == "" {
		return m.String()
	}
	return fmt.Sprintf(m.currency.pattern, digits)
}

func (m Money) sameCurrency(other Money) error {
	if !m.currency.Equal(other.currency) {
		return apperrors.Validation("currency", other.currency.Code(),
			fmt.Sprintf("currency mismatch: %s vs %s", m.currency.Code(), other.currency.Code()))
	}
	return nil
}

type moneyJSON struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Display  string      `json:"display,omitempty"`
}

// MarshalJSON renders {"amount": <number>, "currency": "<code>"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   json.Number(m.amount.String()),
		Currency: m.currency.Code(),
	})
}

// UnmarshalJSON parses and validates the wire form produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperrors.Validation("money", string(data), "malformed money")
	}
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return apperrors.Validation("amount", raw.Amount.String(), "amount must be a decimal number")
	}
	parsed, err := NewMoney(amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// DisplayMoney decorates Money with its human-readable display string in JSON.
type DisplayMoney struct {
	Money
}

// MarshalJSON renders {"amount", "currency", "display"}.
func (d DisplayMoney) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   json.Number(d.amount.String()),
		Currency: d.currency.Code(),
		Display:  d.Display(),
	})
}
