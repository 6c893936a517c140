// Package paper simulates order execution against live prices without touching the exchange.
package paper

import (
	"errors"
	"sync"

	"kingbot-go/internal/exchange"
	"kingbot-go/internal/execution"
)

const epsilon = 1e-9

type holding struct {
	Qty     float64
	AvgCost float64
}

// Account tracks virtual cash, realized PnL, and per-symbol holdings while trading in paper mode.
type Account struct {
	mu          sync.Mutex
	quote       string
	cash        float64
	realizedPnL float64
	holdings    map[string]holding
}

// HoldingSnapshot exposes a read-only view of a single symbol holding.
type HoldingSnapshot struct {
	Qty         float64
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
}

// Snapshot represents a thread-safe view of the account state, optionally marked to market using provided prices.
type Snapshot struct {
	Cash        float64
	RealizedPnL float64
	Equity      float64
	Holdings    map[string]HoldingSnapshot
}

// NewAccount constructs an account holding startingCash of the quote asset.
func NewAccount(quote string, startingCash float64) *Account {
	return &Account{
		quote:    quote,
		cash:     startingCash,
		holdings: make(map[string]holding),
	}
}

// MarketFill executes a market order at the provided price, mutating balances if successful.
func (a *Account) MarketFill(symbol string, side execution.Side, qty, price float64) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.holdings[symbol]
	notional := qty * price

	switch side {
	case execution.Buy:
		if notional > a.cash+epsilon {
			return errors.New("insufficient cash for buy")
		}
		newQty := state.Qty + qty
		a.cash -= notional
		a.holdings[symbol] = holding{Qty: newQty, AvgCost: (state.AvgCost*state.Qty + notional) / newQty}

	case execution.Sell:
		if state.Qty <= 0 || state.Qty+epsilon < qty {
			return errors.New("insufficient position to sell")
		}
		a.realizedPnL += (price - state.AvgCost) * qty
		a.cash += notional
		if newQty := state.Qty - qty; newQty <= epsilon {
			delete(a.holdings, symbol)
		} else {
			a.holdings[symbol] = holding{Qty: newQty, AvgCost: state.AvgCost}
		}

	default:
		return errors.New("unknown order side")
	}
	return nil
}

// Snapshot returns a copy of balances, marked using the supplied prices map.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	holdings := make(map[string]HoldingSnapshot, len(a.holdings))
	equity := a.cash
	for sym, h := range a.holdings {
		mark := prices[sym]
		snap := HoldingSnapshot{Qty: h.Qty, AvgCost: h.AvgCost}
		if mark > 0 {
			snap.MarketValue = h.Qty * mark
			snap.Unrealized = (mark - h.AvgCost) * h.Qty
		}
		holdings[sym] = snap
		equity += snap.MarketValue
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Holdings:    holdings,
	}
}

// Balances reports free amounts by asset, like the exchange account endpoint.
func (a *Account) Balances() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := map[string]float64{a.quote: a.cash}
	for sym, h := range a.holdings {
		base, _ := exchange.SplitSymbol(sym)
		out[base] += h.Qty
	}
	return out
}
