// Package core provides money parsing and handling utilities.
//
// Amounts are currency-agnostic decimals: the same type holds rupiah without
// fractional digits and currencies with cents. Magnitudes are always stored
// positive; the sign of a transaction comes from its Kind.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

func init() {
	// Rates and other bare decimals travel as JSON numbers, like Money.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money wraps decimal.Decimal so JSON carries plain numbers instead of quoted strings.
type Money struct {
	decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{Decimal: decimal.Zero}

// NewMoney creates an integral amount.
func NewMoney(units int64) Money {
	return Money{Decimal: decimal.NewFromInt(units)}
}

// MoneyFromDecimal wraps an existing decimal.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// ParseMoney converts a user-typed amount to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Grouped
// integers such as "1.000.000" are read as thousands separators when more than
// one separator is present. Negative values and zero are rejected.
//
// Examples:
//
//	ParseMoney("50000")     -> 50000
//	ParseMoney("12,5")      -> 12.5
//	ParseMoney("1.000.000") -> 1000000
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "Rp"))
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return Money{}, ErrInvalidAmount
		}
	}
	seps := strings.Count(s, ".") + strings.Count(s, ",")
	switch {
	case seps > 1:
		// Grouping separators; the last one may be a decimal comma ("1.234,5").
		if i := strings.LastIndex(s, ","); i > strings.LastIndex(s, ".") && strings.Count(s, ",") == 1 {
			s = strings.ReplaceAll(s[:i], ".", "") + "." + s[i+1:]
		} else {
			s = strings.NewReplacer(".", "", ",", "").Replace(s)
		}
	case seps == 1:
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := Money{Decimal: d}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

func (m Money) Sub(o Money) Money {
	return Money{Decimal: m.Decimal.Sub(o.Decimal)}
}

func (m Money) Mul(n int64) Money {
	return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(n))}
}

// Equal compares amounts numerically, so 10 equals 10.00.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

func (m Money) GreaterThan(o Money) bool {
	return m.Decimal.GreaterThan(o.Decimal)
}

func (m Money) LessThan(o Money) bool {
	return m.Decimal.LessThan(o.Decimal)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts both numbers and quoted strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(b)
}

// Sum adds up a list of amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
