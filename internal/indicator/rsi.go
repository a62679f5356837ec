package indicator

import "math"

// RSI computes the period-N relative strength index from the simple average
// of gains and losses over the trailing window. The first period values are
// NaN. A window with zero average loss yields exactly 100, never NaN.
func RSI(prices []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}

	out := make([]float64, len(prices))
	for i := range out {
		out[i] = math.NaN()
	}

	if len(prices) < period+1 {
		return out
	}

	for i := period; i < len(prices); i++ {
		var gains, losses float64

		for j := i - period + 1; j <= i; j++ {
			delta := prices[j] - prices[j-1]
			if delta > 0 {
				gains += delta
			} else {
				losses -= delta
			}
		}

		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)

		if avgLoss == 0 {
			out[i] = 100

			continue
		}

		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}

	return out
}
