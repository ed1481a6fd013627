package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// HasCents reports whether d has at most two fraction digits.
func HasCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatMoney renders d with exactly two fraction digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseMoney parses a positive-or-zero amount with at most two fraction digits.
// A comma decimal separator ("1500,50") is accepted.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(normalizeDecimal(s))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: fmt.Sprintf("not a number: %q", s)}
	}
	if !HasCents(d) {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: fmt.Sprintf("%s has more than 2 decimal places", d)}
	}
	return d, nil
}

func normalizeDecimal(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ':
		case ',':
			out = append(out, '.')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// Sum adds amounts exactly; the result does not depend on order.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
