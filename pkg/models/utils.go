package models

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DecimalFromString creates a decimal from string with error handling
func DecimalFromString(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalFromBig creates a decimal from a raw chain integer
func DecimalFromBig(value *big.Int) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, 0)
}

// DecimalFromInt creates a decimal from int64
func DecimalFromInt(value int64) decimal.Decimal {
	return decimal.NewFromInt(value)
}
