package indicator

import (
	"math"

	"github.com/quantfold/backtest/internal/types"
)

// ATR computes the average true range as a simple moving average of the true
// range over period bars. The first bar's true range is its high-low span;
// the warmup region is NaN.
func ATR(bars []types.Bar, period int) []float64 {
	if period <= 0 {
		return nil
	}

	n := len(bars)
	out := make([]float64, n)
	tr := make([]float64, n)

	for i := 0; i < n; i++ {
		if i == 0 {
			tr[i] = bars[i].High - bars[i].Low

			continue
		}

		prevClose := bars[i-1].Close
		tr[i] = math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
	}

	var sum float64

	for i := 0; i < n; i++ {
		sum += tr[i]

		if i < period-1 {
			out[i] = math.NaN()

			continue
		}

		if i >= period {
			sum -= tr[i-period]
		}

		out[i] = sum / float64(period)
	}

	return out
}
