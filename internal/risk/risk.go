// Package risk holds the sizing and loss-limiting rules applied around every order.
package risk

import (
	"github.com/shopspring/decimal"
)

// Limits caps the notional of a single order. Zero disables the cap.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether an order of the given notional is within the cap.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// Allocation sizes an entry as an equal share of capital across symbolCount symbols, truncated
// toward zero to precision decimals so the order never exceeds its share.
func Allocation(capital float64, symbolCount int, price float64, precision int) float64 {
	if capital <= 0 || symbolCount <= 0 || price <= 0 {
		return 0
	}
	share := decimal.NewFromFloat(capital).Div(decimal.NewFromInt(int64(symbolCount)))
	qty := share.Div(decimal.NewFromFloat(price))
	if precision >= 0 {
		qty = qty.Truncate(int32(precision))
	}
	return qty.InexactFloat64()
}

// StopLossHit is true once the adverse move from entry reaches pct (inclusive). The comparison
// entry-current >= entry*pct runs in decimal so a move of exactly pct always triggers.
func StopLossHit(entry, current, pct float64) bool {
	if entry <= 0 || pct <= 0 {
		return false
	}
	e := decimal.NewFromFloat(entry)
	move := e.Sub(decimal.NewFromFloat(current))
	return move.GreaterThanOrEqual(e.Mul(decimal.NewFromFloat(pct)))
}
