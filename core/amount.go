package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// AmountDecimals is the number of fractional digits in the base-unit
// (lamport) denomination: 1 whole token = 10^9 base units.
const AmountDecimals = 9

// AddAmounts returns a+b, or ErrNumericalOverflow if the sum wraps.
func AddAmounts(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("%w: %d + %d", ErrNumericalOverflow, a, b)
	}
	return a + b, nil
}

// SubAmounts returns a-b, or ErrNumericalOverflow if b exceeds a.
func SubAmounts(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrNumericalOverflow, a, b)
	}
	return a - b, nil
}

// ParseAmount converts a decimal token string (e.g. "1.5") into base units.
// Uses decimal arithmetic to avoid floating-point representation errors.
// Rejects negative values, more than AmountDecimals fractional digits, and
// values that do not fit in uint64.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a decimal number", ErrValidation, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: amount %q is negative", ErrValidation, s)
	}
	shifted := d.Shift(AmountDecimals)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: amount %q has more than %d fractional digits", ErrValidation, s, AmountDecimals)
	}
	if shifted.Cmp(decimal.NewFromUint64(math.MaxUint64)) > 0 {
		return 0, fmt.Errorf("%w: amount %q exceeds uint64 range", ErrNumericalOverflow, s)
	}
	return shifted.BigInt().Uint64(), nil
}

// FormatAmount renders a base-unit amount as a decimal token string.
func FormatAmount(v uint64) string {
	return decimal.NewFromUint64(v).Shift(-AmountDecimals).String()
}
