// Package moneypkg provides fixed-point money helpers shared by the ledger layers.
package moneypkg

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits a money amount may carry.
// It matches the NUMERIC(28,8) columns of the ledger tables.
const Scale = 8

var (
	// ErrMalformedAmount indicates the amount is not a decimal number.
	ErrMalformedAmount = errors.New("malformed amount")
	// ErrTooPrecise indicates the amount has more than Scale fractional digits.
	ErrTooPrecise = errors.New("amount has too many fractional digits")
)

// Parse converts a decimal string into a decimal.Decimal without going through floats.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrMalformedAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrMalformedAmount
	}

	if !HasValidScale(d) {
		return decimal.Zero, ErrTooPrecise
	}

	return d, nil
}

// HasValidScale reports whether d fits into Scale fractional digits.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// ValidAmount validates that a string field holds a positive money amount.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := Parse(s)
	if err != nil {
		return false
	}

	return d.IsPositive()
}

// ValidSignedAmount validates that a string field holds a non-zero money amount.
var ValidSignedAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := Parse(s)
	if err != nil {
		return false
	}

	return !d.IsZero()
}
