package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money columns are numeric(12,2).
const moneyScale = 2

var maxMoney = decimal.RequireFromString("9999999999.99")

// checkMoney rejects amounts the money columns would round or overflow.
func checkMoney(field string, a decimal.Decimal) error {
	if !a.Equal(a.Truncate(moneyScale)) {
		return fmt.Errorf("%s %s has more than %d decimal places: %w", field, a, moneyScale, ErrInvalidAmount)
	}
	if a.Abs().GreaterThan(maxMoney) {
		return fmt.Errorf("%s %s exceeds %s: %w", field, a, maxMoney, ErrInvalidAmount)
	}
	return nil
}
