package indicator

import "github.com/quantfold/backtest/internal/types"

// VWAP computes the cumulative volume-weighted average price over the bar
// slice using the typical price (H+L+C)/3. When cumulative volume is zero the
// output is 0, never NaN.
func VWAP(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))

	var sumPV, sumV float64

	for i, bar := range bars {
		typical := (bar.High + bar.Low + bar.Close) / 3
		sumPV += typical * bar.Volume
		sumV += bar.Volume

		if sumV == 0 {
			out[i] = 0

			continue
		}

		out[i] = sumPV / sumV
	}

	return out
}
