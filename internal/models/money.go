package models

import "github.com/shopspring/decimal"

// MaxMinorUnits is the largest amount the processor accepts: eight digits of minor units
const MaxMinorUnits int64 = 99999999

var (
	hundred   = decimal.NewFromInt(100)
	maxAmount = decimal.NewFromInt(MaxMinorUnits)
)

// ExceedsProcessorLimit reports whether amount in major units is above MaxMinorUnits
// once converted. ToMinorUnits is only exact for amounts that pass this check.
func ExceedsProcessorLimit(amount decimal.Decimal) bool {
	return amount.Mul(hundred).Round(0).GreaterThan(maxAmount)
}

// ToMinorUnits converts an amount in major currency units to minor units, round(A * 100)
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts processor minor units back to major units
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
