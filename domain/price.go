package domain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places carried by a minor-unit price.
// A Price of 12345 is 123.45 in display units.
const PriceScale = 2

// ErrInvalidPrice is returned when a decimal price cannot become a minor-unit Price
var ErrInvalidPrice = errors.New("invalid price")

// Price is a non-negative fixed-point price in minor currency units (cents).
// Matching compares Prices as integers only.
type Price uint64

// ParsePrice converts a decimal display price into minor units using
// round(price × 100). Negative and out-of-range values are rejected.
func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidPrice, s, err)
	}
	return PriceFromDecimal(d)
}

// PriceFromDecimal converts a display-unit decimal into minor units
func PriceFromDecimal(d decimal.Decimal) (Price, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w %s: negative", ErrInvalidPrice, d)
	}
	minor := d.Shift(PriceScale).Round(0).BigInt()
	if !minor.IsUint64() {
		return 0, fmt.Errorf("%w %s: out of range", ErrInvalidPrice, d)
	}
	return Price(minor.Uint64()), nil
}

// FormatPrice renders a minor-unit price back into display units (÷100)
func FormatPrice(p Price) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(p)), -PriceScale)
}

func (p Price) String() string {
	return FormatPrice(p).StringFixed(PriceScale)
}
