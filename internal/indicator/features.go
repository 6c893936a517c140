package indicator

import (
	"errors"
	"fmt"

	"kingbot-go/internal/signal"
)

// ErrInsufficientData means the series is shorter than an indicator's warm-up window.
var ErrInsufficientData = errors.New("insufficient data")

// Params configures the indicator windows.
type Params struct {
	RSIWindow  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams are RSI(14) and MACD(12,26,9).
func DefaultParams() Params {
	return Params{RSIWindow: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9}
}

// WarmUp is the number of candles needed before every feature is defined.
func (p Params) WarmUp() int {
	n := p.RSIWindow + 1
	if m := p.MACDSlow + p.MACDSignal - 1; m > n {
		n = m
	}
	return n
}

// Compute returns the features at the last candle. When the history is too short the
// returned set carries whatever is defined and the error wraps ErrInsufficientData.
func Compute(candles []signal.Candle, p Params) (signal.FeatureSet, error) {
	fs := signal.Undefined()
	if p.RSIWindow <= 0 || p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 || p.MACDFast >= p.MACDSlow {
		return fs, fmt.Errorf("invalid indicator params %+v", p)
	}
	if len(candles) == 0 {
		return fs, fmt.Errorf("no candles: %w", ErrInsufficientData)
	}

	closes := signal.Closes(candles)
	last := len(closes) - 1
	var short []string

	rsi, err := RSI(closes, p.RSIWindow)
	switch {
	case errors.Is(err, ErrInsufficientData):
		short = append(short, "rsi")
	case err != nil:
		return fs, fmt.Errorf("rsi: %w", err)
	default:
		fs.RSI = rsi[last]
	}

	macd, sig, _, err := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	switch {
	case errors.Is(err, ErrInsufficientData):
		short = append(short, "macd")
	case err != nil:
		return fs, fmt.Errorf("macd: %w", err)
	default:
		fs.MACD = macd[last]
		fs.MACDSignal = sig[last]
	}

	if len(short) > 0 {
		return fs, fmt.Errorf("%d candles, need %d for %v: %w", len(closes), p.WarmUp(), short, ErrInsufficientData)
	}
	return fs, nil
}
