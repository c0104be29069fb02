package stats

import "github.com/shopspring/decimal"

// weiPerToken is the scaling factor between the chain's base unit and the
// human-readable token amount.
var weiPerToken = decimal.New(1, 18)

// NormalizeValue converts a raw base-unit amount string into a token
// amount. Unparseable input normalizes to zero.
func NormalizeValue(raw string) float64 {
	if raw == "" {
		return 0
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}

	f, _ := d.Div(weiPerToken).Float64()

	return f
}

// RealValue derives the tracked value of a transaction: the top-level value
// when it is non-zero, otherwise the value of its first internal transfer.
// Contract-mediated trades carry the traded amount on the internal
// transfer, not the outer transaction.
func RealValue(value, internalValue string) float64 {
	if v := NormalizeValue(value); v != 0 {
		return v
	}

	return NormalizeValue(internalValue)
}
