// Package signal standardizes payloads shared between data ingestion, strategy and execution layers.
package signal

import (
	"math"
	"time"
)

// Tick models a single streamed trade print.
type Tick struct {
	Symbol string
	Price  float64
	Size   float64
	Side   int // +1 buy, -1 sell (aggressor)
	Ts     time.Time
}

// Candle is one fixed-granularity OHLCV bar.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Closes extracts the close series in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// FeatureSet holds indicator values at the latest candle. Undefined values are NaN.
type FeatureSet struct {
	RSI        float64
	MACD       float64
	MACDSignal float64
}

// Undefined returns a FeatureSet with every value unset.
func Undefined() FeatureSet {
	return FeatureSet{RSI: math.NaN(), MACD: math.NaN(), MACDSignal: math.NaN()}
}

// Defined reports whether every indicator has a value.
func (f FeatureSet) Defined() bool {
	return !math.IsNaN(f.RSI) && !math.IsNaN(f.MACD) && !math.IsNaN(f.MACDSignal)
}

// Kind is the evaluator's verdict for one symbol on one tick.
type Kind int

const (
	Hold Kind = iota
	Enter
	ExitBySignal
	ExitByStopLoss
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "enter"
	case ExitBySignal:
		return "exit_signal"
	case ExitByStopLoss:
		return "exit_stop_loss"
	default:
		return "hold"
	}
}

// IsExit is true for both exit kinds; they share the same sell action.
func (k Kind) IsExit() bool { return k == ExitBySignal || k == ExitByStopLoss }

// Decision pairs a Kind with a human readable reason.
type Decision struct {
	Kind   Kind
	Reason string
}
