package indicator

import "math"

// MACDResult holds the three MACD series, each aligned to the input.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the moving average convergence divergence: the difference of
// the fast and slow EMAs, a signal EMA of that difference, and the histogram
// between the two. Warmup regions are NaN.
func MACD(prices []float64, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return MACDResult{}
	}

	fast := EMA(prices, fastPeriod)
	slow := EMA(prices, slowPeriod)

	line := make([]float64, len(prices))
	for i := range prices {
		line[i] = fast[i] - slow[i]
	}

	// The signal EMA runs over the valid tail of the line only.
	firstValid := slowPeriod - 1
	if firstValid > len(prices) {
		firstValid = len(prices)
	}

	signal := make([]float64, len(prices))
	histogram := make([]float64, len(prices))

	for i := 0; i < firstValid; i++ {
		signal[i] = math.NaN()
		histogram[i] = math.NaN()
	}

	validSignal := EMA(line[firstValid:], signalPeriod)
	for i, v := range validSignal {
		signal[firstValid+i] = v
		histogram[firstValid+i] = line[firstValid+i] - v
	}

	return MACDResult{
		Line:      line,
		Signal:    signal,
		Histogram: histogram,
	}
}
