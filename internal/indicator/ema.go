// Package indicator computes the momentum and trend features the evaluator consumes.
package indicator

import (
	"errors"
	"math"
)

// EMA computes the exponential moving average of series. The first value (index period-1)
// is the simple mean of the first period values; earlier indices are NaN.
func EMA(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(series) < period {
		return nil, ErrInsufficientData
	}

	ema := make([]float64, len(series))
	for i := 0; i < period-1; i++ {
		ema[i] = math.NaN()
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	ema[period-1] = sum / float64(period)

	k := 2.0 / float64(period+1)
	for i := period; i < len(series); i++ {
		ema[i] = (series[i]-ema[i-1])*k + ema[i-1]
	}
	return ema, nil
}
