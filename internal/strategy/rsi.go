package strategy

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"

	"github.com/quantfold/backtest/internal/indicator"
	"github.com/quantfold/backtest/internal/types"
)

// Compile-time interface check.
var _ Strategy = (*RSIStrategy)(nil)

// RSIStrategy buys when the RSI falls below the oversold threshold and sells
// when it rises above the overbought threshold while a position is held.
// Signal strength scales with how far past the threshold the RSI is.
type RSIStrategy struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIStrategy creates an RSIStrategy with the given period and thresholds.
func NewRSIStrategy(period int, oversold, overbought float64) *RSIStrategy {
	return &RSIStrategy{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}
}

// Name returns "rsi".
func (s *RSIStrategy) Name() string {
	return "rsi"
}

// Description returns a human-readable summary of the strategy.
func (s *RSIStrategy) Description() string {
	return fmt.Sprintf("RSI mean reversion (period=%d, oversold=%.0f, overbought=%.0f)", s.period, s.oversold, s.overbought)
}

// Params returns the strategy's configuration parameters.
func (s *RSIStrategy) Params() map[string]any {
	return map[string]any{
		"period":     s.period,
		"oversold":   s.oversold,
		"overbought": s.overbought,
	}
}

// GenerateSignals computes the RSI over the trailing window. It needs at
// least period+1 bars.
func (s *RSIStrategy) GenerateSignals(bars []types.Bar, positions []types.Position) ([]types.Signal, error) {
	if len(bars) < s.period+1 {
		return nil, nil
	}

	closes := indicator.Closes(bars)
	series := indicator.RSI(closes, s.period)

	rsi := series[len(series)-1]
	if math.IsNaN(rsi) {
		return nil, nil
	}

	current := bars[len(bars)-1]
	held := hasPosition(positions, current.Symbol)

	var signals []types.Signal

	if rsi < s.oversold && !held {
		strength := math.Min(1, (s.oversold-rsi)/s.oversold)
		signals = append(signals, types.Signal{
			Symbol:     current.Symbol,
			Action:     types.SignalActionBuy,
			Strength:   strength,
			Price:      current.Close,
			Time:       current.Time,
			Reason:     fmt.Sprintf("RSI oversold (value=%.2f)", rsi),
			Confidence: optional.Some(strength),
		})
	}

	if rsi > s.overbought && held {
		strength := math.Min(1, (rsi-s.overbought)/(100-s.overbought))
		signals = append(signals, types.Signal{
			Symbol:     current.Symbol,
			Action:     types.SignalActionSell,
			Strength:   strength,
			Price:      current.Close,
			Time:       current.Time,
			Reason:     fmt.Sprintf("RSI overbought (value=%.2f)", rsi),
			Confidence: optional.Some(strength),
		})
	}

	return signals, nil
}

// Reset clears internal state. RSIStrategy keeps none beyond configuration.
func (s *RSIStrategy) Reset() {}
