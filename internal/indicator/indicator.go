// Package indicator provides stateless technical indicator calculations over
// price and bar slices. Every series function returns a slice aligned to its
// input, padded with NaN for the warmup region where the indicator is not yet
// defined.
package indicator

import (
	"github.com/quantfold/backtest/internal/types"
)

// Closes extracts the close prices from a bar slice.
func Closes(bars []types.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	return closes
}

// Last returns the final value of a series, or NaN-safe fallback when empty.
func Last(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}

	return series[len(series)-1], true
}
