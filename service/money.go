package service

import (
	"math"

	"github.com/shopspring/decimal"
)

// roundTo2Decimals rounds a currency amount to cents, half away from zero.
func roundTo2Decimals(value float64) float64 {
	return toMoney(decimal.NewFromFloat(value))
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func toMoney(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// withinTolerance reports whether claimed is within max(rel·|verified|, MinorUnit)
// of verified.
func withinTolerance(claimed, verified float64) bool {
	if math.IsNaN(claimed) || math.IsInf(claimed, 0) {
		return false
	}
	diff := money(claimed).Sub(money(verified)).Abs()
	allowed := money(verified).Abs().Mul(decimal.NewFromFloat(OracleRelativeTolerance))
	if minor := decimal.NewFromFloat(MinorUnit); allowed.LessThan(minor) {
		allowed = minor
	}
	return diff.LessThanOrEqual(allowed)
}
