package utils

import (
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
)

// Number of minor-unit digits per ISO 4217 code. Codes not listed use 2.
var currencyExponents = map[string]int32{
	"NGN": 2,
	"GHS": 2,
	"KES": 2,
	"ZAR": 2,
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"XOF": 0,
	"JPY": 0,
	"VND": 0,
	"KRW": 0,
}

func CurrencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// ToMinorUnits converts a decimal amount to the currency's smallest unit.
// Amounts with more precision than the currency allows are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	shifted := amount.Shift(CurrencyExponent(currency))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s has too many decimal places for %s", ErrValidation, amount.String(), currency)
	}
	if !shifted.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	return shifted.IntPart(), nil
}

func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -CurrencyExponent(currency))
}

// NormalizeCurrency upper-cases a currency code, falling back to def when empty.
func NormalizeCurrency(currency, def string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		c = strings.ToUpper(def)
	}
	if len(c) != 3 {
		return "", fmt.Errorf("%w: currency must be a 3-letter ISO 4217 code", ErrValidation)
	}
	return c, nil
}
