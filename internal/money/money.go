package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// minorExponents lists ISO-4217 currencies whose minor unit is not 1/100.
var minorExponents = map[string]int32{
	"BHD": 3,
	"CLP": 0,
	"IQD": 3,
	"ISK": 0,
	"JOD": 3,
	"JPY": 0,
	"KRW": 0,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
	"UGX": 0,
	"VND": 0,
	"XAF": 0,
	"XOF": 0,
}

// Exponent returns the number of decimal places of currency's minor unit.
func Exponent(currency string) int32 {
	if exp, ok := minorExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// FormatMinor renders an amount in minor units as a fixed-point string in
// the currency's major unit, e.g. 123456 USD -> "1234.56".
func FormatMinor(value int64, currency string) string {
	exp := Exponent(currency)
	return decimal.New(value, -exp).StringFixed(exp)
}

// ToMajor converts minor units to a decimal amount in major units.
func ToMajor(value int64, currency string) decimal.Decimal {
	return decimal.New(value, -Exponent(currency))
}
