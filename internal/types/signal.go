package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type SignalAction string

const (
	// SignalActionBuy tells the engine to open or add to a long position.
	SignalActionBuy SignalAction = "BUY"
	// SignalActionSell tells the engine to liquidate the position for the symbol.
	SignalActionSell SignalAction = "SELL"
	// SignalActionHold tells the engine to take no action.
	SignalActionHold SignalAction = "HOLD"
)

// Signal is a single trading instruction produced by a strategy for the
// current bar. Signals are never persisted beyond one engine iteration.
type Signal struct {
	Symbol string       `yaml:"symbol" json:"symbol"`
	Action SignalAction `yaml:"action" json:"action"`
	// Strength is an advisory weight in [0, 1].
	Strength float64   `yaml:"strength" json:"strength"`
	Price    float64   `yaml:"price" json:"price"`
	Time     time.Time `yaml:"time" json:"time"`
	Reason   string    `yaml:"reason" json:"reason"`
	// Confidence is an optional estimate in [0, 1] set by strategies that
	// grade their own signals.
	Confidence optional.Option[float64] `yaml:"confidence" json:"confidence"`
}
