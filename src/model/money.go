package model

import "github.com/shopspring/decimal"

// DivisionScale is the number of fractional digits kept by every price, quantity
// and fee division. DivRound rounds half away from zero, which is half-up for the
// non-negative values handled here.
const DivisionScale int32 = 12

// ParseDecimal parses an exchange string amount. Blank or malformed input is zero.
func ParseDecimal(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// PlainString renders d without exponent and without trailing zeros.
func PlainString(d decimal.Decimal) string {
	return d.String()
}
