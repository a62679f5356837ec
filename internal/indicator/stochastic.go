package indicator

import "math"

// StochasticResult holds the %K and %D series, each aligned to the input.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes the stochastic oscillator: %K positions the close
// inside the high-low range of the last kPeriod bars, %D is a dPeriod SMA of
// %K. A zero high-low range yields %K of exactly 50, never NaN.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochasticResult {
	n := len(closes)
	if kPeriod <= 0 || dPeriod <= 0 || len(highs) != n || len(lows) != n {
		return StochasticResult{}
	}

	k := make([]float64, n)

	for i := 0; i < n; i++ {
		if i < kPeriod-1 {
			k[i] = math.NaN()

			continue
		}

		highest := math.Inf(-1)
		lowest := math.Inf(1)

		for j := i - kPeriod + 1; j <= i; j++ {
			highest = math.Max(highest, highs[j])
			lowest = math.Min(lowest, lows[j])
		}

		if highest == lowest {
			k[i] = 50

			continue
		}

		k[i] = 100 * (closes[i] - lowest) / (highest - lowest)
	}

	d := make([]float64, n)

	for i := 0; i < n; i++ {
		firstValid := kPeriod - 1
		if i < firstValid+dPeriod-1 {
			d[i] = math.NaN()

			continue
		}

		var sum float64
		for j := i - dPeriod + 1; j <= i; j++ {
			sum += k[j]
		}

		d[i] = sum / float64(dPeriod)
	}

	return StochasticResult{K: k, D: d}
}
