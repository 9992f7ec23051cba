package core

import (
	"errors"
	"math"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestAddAmounts(t *testing.T) {
	sum, err := AddAmounts(1, 2)
	assert.NoError(t, err)
	check.Equal(t, uint64(3), sum)

	sum, err = AddAmounts(math.MaxUint64, 0)
	assert.NoError(t, err)
	check.Equal(t, uint64(math.MaxUint64), sum)

	_, err = AddAmounts(math.MaxUint64, 1)
	check.True(t, errors.Is(err, ErrNumericalOverflow))
}

func TestSubAmounts(t *testing.T) {
	diff, err := SubAmounts(5, 2)
	assert.NoError(t, err)
	check.Equal(t, uint64(3), diff)

	_, err = SubAmounts(2, 5)
	check.True(t, errors.Is(err, ErrNumericalOverflow))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1.5")
	assert.NoError(t, err)
	check.Equal(t, uint64(1_500_000_000), v)

	v, err = ParseAmount("0")
	assert.NoError(t, err)
	check.Equal(t, uint64(0), v)

	v, err = ParseAmount("0.000000001")
	assert.NoError(t, err)
	check.Equal(t, uint64(1), v)

	_, err = ParseAmount("0.0000000001") // below base-unit resolution
	check.True(t, errors.Is(err, ErrValidation))

	_, err = ParseAmount("-1")
	check.True(t, errors.Is(err, ErrValidation))

	_, err = ParseAmount("not-a-number")
	check.True(t, errors.Is(err, ErrValidation))

	_, err = ParseAmount("99999999999999999999")
	check.True(t, errors.Is(err, ErrNumericalOverflow))
}

func TestFormatAmount(t *testing.T) {
	check.Equal(t, "1.5", FormatAmount(1_500_000_000))
	check.Equal(t, "0", FormatAmount(0))
	check.Equal(t, "0.000000001", FormatAmount(1))

	// Round trip at the uint64 ceiling.
	v, err := ParseAmount(FormatAmount(math.MaxUint64))
	assert.NoError(t, err)
	check.Equal(t, uint64(math.MaxUint64), v)
}

func TestAddressFromHex(t *testing.T) {
	a := AddressFromSeed("bidder-1")
	parsed, err := AddressFromHex(a.String())
	assert.NoError(t, err)
	check.Equal(t, a, parsed)

	_, err = AddressFromHex("zz")
	check.True(t, errors.Is(err, ErrValidation))
	_, err = AddressFromHex("abcd") // right alphabet, wrong length
	check.True(t, errors.Is(err, ErrValidation))
}
