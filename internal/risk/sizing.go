package risk

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// DefaultStopFraction places a missing stop-loss 2% away from the entry.
var DefaultStopFraction = decimal.RequireFromString("0.02")

var hundred = decimal.NewFromInt(100)

// CalculateQuantity sizes a position so that |entry-stop|*qty stays within
// capital*riskPercent/100, rounded down to a whole number of lots. A result
// of 0 means not even one lot fits the risk budget.
func CalculateQuantity(
	capital decimal.Decimal,
	riskPercent decimal.Decimal,
	entry decimal.Decimal,
	stopLoss decimal.Decimal,
	lotSize int,
) int {
	if lotSize < 1 {
		lotSize = 1
	}

	budget := capital.Mul(riskPercent).Div(hundred)
	perUnit := entry.Sub(stopLoss).Abs()

	if !budget.IsPositive() || !perUnit.IsPositive() {
		return 0
	}

	units := budget.Div(perUnit).Floor().IntPart()
	lots := units / int64(lotSize)

	return int(lots) * lotSize
}

// StopOrDefault returns the stop when set, or the default stop for a long
// entry at price.
func StopOrDefault(stop optional.Option[decimal.Decimal], price decimal.Decimal) decimal.Decimal {
	if stop.IsSome() {
		return stop.Unwrap()
	}

	return price.Mul(decimal.NewFromInt(1).Sub(DefaultStopFraction))
}

// PlannedRisk is the loss taken if the stop is hit.
func PlannedRisk(qty int, entry decimal.Decimal, stopLoss decimal.Decimal) decimal.Decimal {
	return entry.Sub(stopLoss).Abs().Mul(decimal.NewFromInt(int64(qty)))
}
