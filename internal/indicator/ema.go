package indicator

import "math"

// EMA computes the exponential moving average with the standard smoothing
// factor 2/(period+1), seeded with the SMA of the first period points. The
// warmup region is NaN.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}

	out := make([]float64, len(prices))
	k := 2.0 / float64(period+1)

	if len(prices) < period {
		for i := range out {
			out[i] = math.NaN()
		}

		return out
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += prices[i]
	}

	seed /= float64(period)

	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}

	out[period-1] = seed

	for i := period; i < len(prices); i++ {
		out[i] = (prices[i]-out[i-1])*k + out[i-1]
	}

	return out
}
