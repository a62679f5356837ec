// Package strategy defines the Strategy interface for trading strategies and
// provides the reference implementations that ship with the backtester.
package strategy

import (
	"github.com/quantfold/backtest/internal/types"
)

// Strategy is the contract every trading strategy must implement. A strategy
// turns a trailing window of bars plus the caller's open positions into
// signals for the current bar only.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Description returns a human-readable summary of the strategy.
	Description() string

	// Params returns the strategy's configuration parameters.
	Params() map[string]any

	// GenerateSignals is called once per bar with the trailing window (most
	// recent bar last) and the currently open positions. It returns zero or
	// more signals for the current bar.
	GenerateSignals(bars []types.Bar, positions []types.Position) ([]types.Signal, error)

	// Reset clears any internal state between separate runs.
	Reset()
}

// hasPosition reports whether an open position exists for the symbol.
func hasPosition(positions []types.Position, symbol string) bool {
	for _, position := range positions {
		if position.Symbol == symbol {
			return true
		}
	}

	return false
}
