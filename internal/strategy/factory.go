package strategy

import (
	"kingbot-go/internal/position"
	sig "kingbot-go/internal/signal"
)

// Evaluator turns features and position context into a decision. Implementations are pure.
type Evaluator interface {
	Evaluate(features sig.FeatureSet, pos *position.Position, price float64) sig.Decision
	Name() string
}

// Params expresses tunable knobs required by evaluator constructors.
type Params struct {
	RSIBuyBelow  float64
	RSISellAbove float64
	StopLossPct  float64
}

// Build returns the evaluator for mode. RSI/MACD is the only policy shipped, so "", "rsi_macd"
// and unknown modes all resolve to it.
func Build(mode string, params Params) Evaluator {
	return NewRSIMACD(params)
}
