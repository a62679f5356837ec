package indicator

import "math"

// SMA computes the simple moving average over the last period points. The
// result has exactly period-1 leading NaNs; SMA[i] is the mean of
// prices[i-period+1..i] for all valid i.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}

	out := make([]float64, len(prices))

	var sum float64

	for i := range prices {
		sum += prices[i]
		if i < period-1 {
			out[i] = math.NaN()

			continue
		}

		if i >= period {
			sum -= prices[i-period]
		}

		out[i] = sum / float64(period)
	}

	return out
}
