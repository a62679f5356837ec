package strategy

import (
	"fmt"

	"github.com/quantfold/backtest/internal/indicator"
	"github.com/quantfold/backtest/internal/types"
)

// Compile-time interface check.
var _ Strategy = (*SMACrossover)(nil)

// SMACrossover generates a buy signal when the short-period SMA crosses above
// the long-period SMA ("golden cross") and a sell signal on the inverse
// crossover while a position is held.
type SMACrossover struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACrossover creates an SMACrossover strategy with the given short and
// long moving average periods.
func NewSMACrossover(shortPeriod, longPeriod int) *SMACrossover {
	return &SMACrossover{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
	}
}

// Name returns "sma-crossover".
func (s *SMACrossover) Name() string {
	return "sma-crossover"
}

// Description returns a human-readable summary of the strategy.
func (s *SMACrossover) Description() string {
	return fmt.Sprintf("SMA crossover (short=%d, long=%d)", s.shortPeriod, s.longPeriod)
}

// Params returns the strategy's configuration parameters.
func (s *SMACrossover) Params() map[string]any {
	return map[string]any{
		"short_period": s.shortPeriod,
		"long_period":  s.longPeriod,
	}
}

// GenerateSignals detects a crossover between the current window and the
// window excluding the last bar. It needs at least longPeriod+1 bars.
func (s *SMACrossover) GenerateSignals(bars []types.Bar, positions []types.Position) ([]types.Signal, error) {
	if len(bars) < s.longPeriod+1 {
		return nil, nil
	}

	closes := indicator.Closes(bars)
	current := bars[len(bars)-1]

	curShort := mean(closes[len(closes)-s.shortPeriod:])
	curLong := mean(closes[len(closes)-s.longPeriod:])

	prev := closes[:len(closes)-1]
	prevShort := mean(prev[len(prev)-s.shortPeriod:])
	prevLong := mean(prev[len(prev)-s.longPeriod:])

	held := hasPosition(positions, current.Symbol)

	var signals []types.Signal

	if prevShort <= prevLong && curShort > curLong && !held {
		signals = append(signals, types.Signal{
			Symbol:   current.Symbol,
			Action:   types.SignalActionBuy,
			Strength: 1,
			Price:    current.Close,
			Time:     current.Time,
			Reason:   fmt.Sprintf("golden cross: SMA%d %.2f over SMA%d %.2f", s.shortPeriod, curShort, s.longPeriod, curLong),
		})
	}

	if prevShort >= prevLong && curShort < curLong && held {
		signals = append(signals, types.Signal{
			Symbol:   current.Symbol,
			Action:   types.SignalActionSell,
			Strength: 1,
			Price:    current.Close,
			Time:     current.Time,
			Reason:   fmt.Sprintf("death cross: SMA%d %.2f under SMA%d %.2f", s.shortPeriod, curShort, s.longPeriod, curLong),
		})
	}

	return signals, nil
}

// Reset clears internal state. SMACrossover keeps none beyond configuration.
func (s *SMACrossover) Reset() {}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
