package validator

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Amounts are stored as numeric(26,8).
const (
	AmountScale         = 8
	AmountIntegerDigits = 18
)

var (
	ErrAmountRequired  = errors.New("must be provided")
	ErrAmountInvalid   = errors.New("must be a decimal number")
	ErrAmountNotPos    = errors.New("must be greater than zero")
	ErrAmountPrecision = errors.New("must have at most 8 decimal places")
	ErrAmountTooLarge  = errors.New("is too large")
)

var maxAmount = decimal.New(1, AmountIntegerDigits)

// ParseAmount parses a positive decimal string that fits numeric(26,8).
func ParseAmount(value string) (decimal.Decimal, error) {
	if !NotBlank(value) {
		return decimal.Zero, ErrAmountRequired
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}

	if !amount.IsPositive() {
		return decimal.Zero, ErrAmountNotPos
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return decimal.Zero, ErrAmountPrecision
	}

	if amount.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, ErrAmountTooLarge
	}

	return amount, nil
}

// CheckAmount parses value and records a "<field> <reason>" error on failure.
func (v *Validator) CheckAmount(field, value string) decimal.Decimal {
	amount, err := ParseAmount(value)
	if err != nil {
		v.AddError(field + " " + err.Error())
	}

	return amount
}
