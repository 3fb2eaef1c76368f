// Package money converts between user-facing decimal amounts and the integer minor units
// (cents) the engine computes with, and formats amounts for alert messages.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BRL is the default currency (ISO-4217)
const BRL = "BRL"

// ErrOutOfRange is returned for amounts that do not fit in int64 minor units
var ErrOutOfRange = errors.New("amount out of range")

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Money is an amount in minor units with its currency
type Money struct {
	m *money.Money
}

// New creates a Money value from minor units
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, currencyCode)}
}

// MinorFromDecimal converts a decimal amount into minor units, rounding half away from zero
func MinorFromDecimal(amount decimal.Decimal, currencyCode string) (int64, error) {
	multiplier := decimal.New(1, int32(fraction(currencyCode)))
	minor := amount.Mul(multiplier).Round(0)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, amount.String())
	}
	return minor.IntPart(), nil
}

// Parse reads a decimal amount such as "1500", "1500.50" or "1.500,50" (when
// european is true). Currency symbols and spaces are ignored.
func Parse(amount string, currencyCode string, european bool) (*Money, error) {
	s := strings.TrimSpace(amount)
	s = strings.ReplaceAll(s, " ", "")
	for _, sym := range []string{"R$", "$", "€"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if european {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	minor, err := MinorFromDecimal(d, currencyCode)
	if err != nil {
		return nil, err
	}
	return New(minor, currencyCode), nil
}

// Amount returns the value in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// Display formats the amount with the currency symbol, e.g. "R$100,00"
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.m.Display()
}

// ToDecimal returns the amount in major units
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.m.Currency().Fraction))
}

// String returns the amount as a plain decimal string, e.g. "1234.56"
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(int32(m.m.Currency().Fraction))
}

// MarshalJSON encodes minor units, currency and the display string
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(struct {
		AmountMinor int64  `json:"amount_minor"`
		Currency    string `json:"currency"`
		Display     string `json:"display"`
	}{m.Amount(), m.Currency(), m.Display()})
}

func fraction(currencyCode string) int {
	if c := money.GetCurrency(currencyCode); c != nil {
		return c.Fraction
	}
	return 2
}
