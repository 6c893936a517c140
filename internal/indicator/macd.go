package indicator

import (
	"errors"
	"math"
)

// MACD calculates the MACD line, signal line, and histogram. The signal line is the EMA of the
// defined part of the MACD line, so it first appears at index slow+signal-2.
func MACD(series []float64, fastPeriod, slowPeriod, signalPeriod int) (macd, signal, hist []float64, err error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return nil, nil, nil, errors.New("periods must be positive")
	}
	if fastPeriod >= slowPeriod {
		return nil, nil, nil, errors.New("fast period must be smaller than slow period")
	}
	if len(series) < slowPeriod+signalPeriod-1 {
		return nil, nil, nil, ErrInsufficientData
	}

	fast, err := EMA(series, fastPeriod)
	if err != nil {
		return nil, nil, nil, err
	}
	slow, err := EMA(series, slowPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	firstValid := slowPeriod - 1
	macd = make([]float64, len(series))
	for i := range series {
		if i < firstValid {
			macd[i] = math.NaN()
			continue
		}
		macd[i] = fast[i] - slow[i]
	}

	signalRaw, err := EMA(macd[firstValid:], signalPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	signal = make([]float64, len(series))
	hist = make([]float64, len(series))
	for i := 0; i < firstValid; i++ {
		signal[i] = math.NaN()
		hist[i] = math.NaN()
	}
	for idx, val := range signalRaw {
		i := firstValid + idx
		signal[i] = val
		hist[i] = macd[i] - val
	}
	return macd, signal, hist, nil
}
