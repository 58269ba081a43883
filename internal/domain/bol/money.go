package bol

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fraction digits kept for monetary values
const MoneyPlaces = 2

// minorUnit is the smallest currency unit
var minorUnit = decimal.New(1, -MoneyPlaces)

// MaxAmount is the largest value a NUMERIC(12, 2) money column holds
var MaxAmount = decimal.RequireFromString("9999999999.99")

// RoundMoney rounds a monetary value half away from zero to cents
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// clampDue pins a due amount that drifted below zero by less than one minor unit to exactly zero
func clampDue(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() && d.Abs().LessThan(minorUnit) {
		return decimal.Zero
	}
	return d
}

// withinTolerance reports whether a and b differ by less than one minor unit
func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(minorUnit)
}
