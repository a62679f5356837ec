package indicator

import "math"

// BollingerBandsResult holds the three band series, each aligned to the input.
type BollingerBandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerBands computes a period-SMA middle band with upper and lower bands
// at stdDevs population standard deviations. Warmup regions are NaN.
func BollingerBands(prices []float64, period int, stdDevs float64) BollingerBandsResult {
	if period <= 0 {
		return BollingerBandsResult{}
	}

	n := len(prices)
	upper := make([]float64, n)
	middle := make([]float64, n)
	lower := make([]float64, n)

	var sum, sumSq float64

	for i := 0; i < n; i++ {
		sum += prices[i]
		sumSq += prices[i] * prices[i]

		if i < period-1 {
			upper[i] = math.NaN()
			middle[i] = math.NaN()
			lower[i] = math.NaN()

			continue
		}

		if i >= period {
			sum -= prices[i-period]
			sumSq -= prices[i-period] * prices[i-period]
		}

		mean := sum / float64(period)

		variance := sumSq/float64(period) - mean*mean
		if variance < 0 {
			variance = 0
		}

		sd := math.Sqrt(variance)

		middle[i] = mean
		upper[i] = mean + stdDevs*sd
		lower[i] = mean - stdDevs*sd
	}

	return BollingerBandsResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
	}
}
