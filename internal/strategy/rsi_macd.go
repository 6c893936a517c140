// Package strategy contains the entry/exit policy applied to indicator features.
package strategy

import (
	"fmt"

	"kingbot-go/internal/position"
	"kingbot-go/internal/risk"
	sig "kingbot-go/internal/signal"
)

// RSIMACD buys oversold dips with MACD above its signal line and sells on overbought RSI
// or when the stop-loss floor is breached.
type RSIMACD struct {
	buyBelow  float64
	sellAbove float64
	stopLoss  float64
}

// NewRSIMACD applies the 30/70 thresholds and a 3% stop when params are unset.
func NewRSIMACD(params Params) *RSIMACD {
	if params.RSIBuyBelow <= 0 {
		params.RSIBuyBelow = 30
	}
	if params.RSISellAbove <= 0 {
		params.RSISellAbove = 70
	}
	if params.StopLossPct <= 0 {
		params.StopLossPct = 0.03
	}
	return &RSIMACD{buyBelow: params.RSIBuyBelow, sellAbove: params.RSISellAbove, stopLoss: params.StopLossPct}
}

// Name returns the identifier for the strategy implementation.
func (s *RSIMACD) Name() string { return "RSIMACD" }

// Evaluate never enters or exits on an undefined feature set.
func (s *RSIMACD) Evaluate(features sig.FeatureSet, pos *position.Position, price float64) sig.Decision {
	if !features.Defined() {
		return sig.Decision{Kind: sig.Hold, Reason: "insufficient history"}
	}

	if pos == nil {
		if features.RSI < s.buyBelow && features.MACD > features.MACDSignal {
			return sig.Decision{
				Kind:   sig.Enter,
				Reason: fmt.Sprintf("rsi=%.2f<%.0f macd=%.4f>signal=%.4f", features.RSI, s.buyBelow, features.MACD, features.MACDSignal),
			}
		}
		return sig.Decision{Kind: sig.Hold, Reason: fmt.Sprintf("flat rsi=%.2f", features.RSI)}
	}

	// stop-loss wins the tie with an RSI exit
	if risk.StopLossHit(pos.EntryPrice, price, s.stopLoss) {
		loss := (pos.EntryPrice - price) / pos.EntryPrice
		return sig.Decision{
			Kind:   sig.ExitByStopLoss,
			Reason: fmt.Sprintf("stop-loss %.2f%% >= %.2f%%", loss*100, s.stopLoss*100),
		}
	}
	if features.RSI > s.sellAbove {
		return sig.Decision{Kind: sig.ExitBySignal, Reason: fmt.Sprintf("rsi=%.2f>%.0f", features.RSI, s.sellAbove)}
	}
	return sig.Decision{Kind: sig.Hold, Reason: fmt.Sprintf("holding rsi=%.2f", features.RSI)}
}
