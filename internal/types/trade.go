package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type TradeSide string

type TradeStatus string

const (
	TradeSideLong  TradeSide = "LONG"
	TradeSideShort TradeSide = "SHORT"
)

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

// Trade is the ledger record of an entry and its eventual exit. A buy order
// creates an open trade; a sell against the position closes trades and stamps
// the exit fields and realized PnL.
type Trade struct {
	ID         int64     `yaml:"id" json:"id" csv:"id"`
	Symbol     string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side       TradeSide `yaml:"side" json:"side" csv:"side"`
	Quantity   float64   `yaml:"quantity" json:"quantity" csv:"quantity"`
	EntryPrice float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	EntryTime  time.Time `yaml:"entry_time" json:"entry_time" csv:"entry_time"`

	ExitPrice optional.Option[float64]   `yaml:"exit_price" json:"exit_price" csv:"-"`
	ExitTime  optional.Option[time.Time] `yaml:"exit_time" json:"exit_time" csv:"-"`

	Fees float64 `yaml:"fees" json:"fees" csv:"fees"`
	// PnL and PnLPercent are populated only when the trade is closed.
	PnL        float64     `yaml:"pnl" json:"pnl" csv:"pnl"`
	PnLPercent float64     `yaml:"pnl_percent" json:"pnl_percent" csv:"pnl_percent"`
	Status     TradeStatus `yaml:"status" json:"status" csv:"status"`
}

// Duration returns the holding time of a closed trade, or zero if still open.
func (t *Trade) Duration() time.Duration {
	if t.ExitTime.IsNone() {
		return 0
	}

	return t.ExitTime.Unwrap().Sub(t.EntryTime)
}

// Position represents the current holdings of a symbol. Quantity is always
// positive; a position at zero quantity is removed from the ledger instead.
type Position struct {
	Symbol   string    `yaml:"symbol" json:"symbol"`
	Side     TradeSide `yaml:"side" json:"side"`
	Quantity float64   `yaml:"quantity" json:"quantity"`
	// AvgEntryPrice is volume-weighted across all adds and is recomputed only
	// on buys, never on sells.
	AvgEntryPrice float64   `yaml:"avg_entry_price" json:"avg_entry_price"`
	CurrentPrice  float64   `yaml:"current_price" json:"current_price"`
	UnrealizedPnL float64   `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	RealizedPnL   float64   `yaml:"realized_pnl" json:"realized_pnl"`
	OpenTime      time.Time `yaml:"open_time" json:"open_time"`
	// TradeIDs lists the constituent trades of this position.
	TradeIDs []int64 `yaml:"trade_ids" json:"trade_ids"`
}

// MarketValue returns the mark-to-market value of the position.
func (p *Position) MarketValue() float64 {
	return p.Quantity * p.CurrentPrice
}
