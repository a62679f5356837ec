// Package portfolio implements the ledger: cash, open positions, trade and
// order history, and the per-bar equity snapshots. All mutation of money and
// position state happens here.
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantfold/backtest/internal/config"
	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/types"

	"github.com/moznion/go-optional"
)

// Portfolio owns all money and position state for one backtest run. It is not
// safe for concurrent use; callers needing concurrent backtests must use
// separate instances.
type Portfolio struct {
	initialCapital float64
	slippageRate   float64
	commissionRate float64

	cash      float64
	positions map[string]*types.Position
	trades    []types.Trade
	orders    []types.Order
	snapshots []types.PortfolioSnapshot

	// lastPrices holds the most recent mark per symbol so equity can fall
	// back when a mark is missing for a bar.
	lastPrices    map[string]float64
	highWaterMark float64

	nextOrderID int64
	nextTradeID int64

	log *logger.Logger
}

// New creates a portfolio funded with the configured initial capital.
func New(cfg config.Config, log *logger.Logger) *Portfolio {
	p := &Portfolio{
		initialCapital: cfg.InitialCapital,
		slippageRate:   cfg.Slippage,
		commissionRate: cfg.Commission,
		log:            log,
	}
	p.Reset()

	return p
}

// Reset restores cash to the initial capital, clears all collections, and
// zeroes the id counters and high-water mark. It must run before every
// engine run so repeated runs do not leak state.
func (p *Portfolio) Reset() {
	p.cash = p.initialCapital
	p.positions = make(map[string]*types.Position)
	p.trades = nil
	p.orders = nil
	p.snapshots = nil
	p.lastPrices = make(map[string]float64)
	p.highWaterMark = p.initialCapital
	p.nextOrderID = 0
	p.nextTradeID = 0
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	return p.cash
}

// InitialCapital returns the funded starting capital.
func (p *Portfolio) InitialCapital() float64 {
	return p.initialCapital
}

// OpenPositions returns a copy of all open positions, sorted by symbol.
func (p *Portfolio) OpenPositions() []types.Position {
	positions := make([]types.Position, 0, len(p.positions))
	for _, position := range p.positions {
		positions = append(positions, clonePosition(position))
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return positions
}

// Position returns the open position for a symbol, if any.
func (p *Portfolio) Position(symbol string) (types.Position, bool) {
	position, ok := p.positions[symbol]
	if !ok {
		return types.Position{}, false
	}

	return clonePosition(position), true
}

// Trades returns the full trade history.
func (p *Portfolio) Trades() []types.Trade {
	trades := make([]types.Trade, len(p.trades))
	copy(trades, p.trades)

	return trades
}

// Orders returns the full order history.
func (p *Portfolio) Orders() []types.Order {
	orders := make([]types.Order, len(p.orders))
	copy(orders, p.orders)

	return orders
}

// Snapshots returns the per-bar equity snapshot series.
func (p *Portfolio) Snapshots() []types.PortfolioSnapshot {
	snapshots := make([]types.PortfolioSnapshot, len(p.snapshots))
	copy(snapshots, p.snapshots)

	return snapshots
}

// GetEquity returns cash plus the mark-to-market value of all open positions.
// A symbol missing from marks falls back to its last known price. No side
// effects.
func (p *Portfolio) GetEquity(marks map[string]float64) float64 {
	equity := p.cash

	for symbol, position := range p.positions {
		price, ok := marks[symbol]
		if !ok {
			price = position.CurrentPrice
		}

		equity += position.Quantity * price
	}

	return equity
}

// PlaceOrder records a pending order. It assigns the id and timestamp and
// does not move any money.
func (p *Portfolio) PlaceOrder(spec types.OrderSpec, timestamp time.Time) types.Order {
	p.nextOrderID++

	order := types.Order{
		ID:         p.nextOrderID,
		Symbol:     spec.Symbol,
		Side:       spec.Side,
		Type:       spec.Type,
		Quantity:   spec.Quantity,
		LimitPrice: spec.LimitPrice,
		StopPrice:  spec.StopPrice,
		Status:     types.OrderStatusPending,
		Reason:     spec.Reason,
		CreatedAt:  timestamp,
	}

	p.orders = append(p.orders, order)

	return order
}

// ExecuteOrder fills a pending market order at the given price, applying
// slippage and commission. A buy that would overdraw cash is rejected, not an
// error. A sell with no matching long position is a no-op. Returns the trade
// affected by the fill, or nil when nothing applied.
func (p *Portfolio) ExecuteOrder(orderID int64, price float64, timestamp time.Time) *types.Trade {
	order := p.findOrder(orderID)
	if order == nil || order.Status != types.OrderStatusPending {
		return nil
	}

	switch order.Side {
	case types.OrderSideBuy:
		return p.executeBuy(order, price, timestamp)
	case types.OrderSideSell:
		return p.executeSell(order, price, timestamp)
	}

	return nil
}

func (p *Portfolio) executeBuy(order *types.Order, price float64, timestamp time.Time) *types.Trade {
	execPrice := price * (1 + p.slippageRate)
	commission := order.Quantity * execPrice * p.commissionRate

	cost, _ := decimal.NewFromFloat(order.Quantity).
		Mul(decimal.NewFromFloat(execPrice)).
		Add(decimal.NewFromFloat(commission)).
		Float64()

	if cost > p.cash {
		order.Status = types.OrderStatusRejected
		p.log.Debug("buy order rejected: insufficient cash",
			zap.Int64("order_id", order.ID),
			zap.Float64("cost", cost),
			zap.Float64("cash", p.cash),
		)

		return nil
	}

	p.cash, _ = decimal.NewFromFloat(p.cash).Sub(decimal.NewFromFloat(cost)).Float64()

	p.nextTradeID++
	trade := types.Trade{
		ID:         p.nextTradeID,
		Symbol:     order.Symbol,
		Side:       types.TradeSideLong,
		Quantity:   order.Quantity,
		EntryPrice: execPrice,
		EntryTime:  timestamp,
		Fees:       commission,
		Status:     types.TradeStatusOpen,
	}
	p.trades = append(p.trades, trade)

	position, ok := p.positions[order.Symbol]
	if !ok {
		p.positions[order.Symbol] = &types.Position{
			Symbol:        order.Symbol,
			Side:          types.TradeSideLong,
			Quantity:      order.Quantity,
			AvgEntryPrice: execPrice,
			CurrentPrice:  execPrice,
			OpenTime:      timestamp,
			TradeIDs:      []int64{trade.ID},
		}
	} else {
		// Volume-weighted average entry across all adds
		totalQty := position.Quantity + order.Quantity
		position.AvgEntryPrice = (position.AvgEntryPrice*position.Quantity + execPrice*order.Quantity) / totalQty
		position.Quantity = totalQty
		position.TradeIDs = append(position.TradeIDs, trade.ID)
	}

	order.Status = types.OrderStatusFilled
	order.FilledAt = optional.Some(timestamp)
	order.FilledPrice = execPrice
	order.FilledQuantity = order.Quantity

	return &p.trades[len(p.trades)-1]
}

func (p *Portfolio) executeSell(order *types.Order, price float64, timestamp time.Time) *types.Trade {
	position, ok := p.positions[order.Symbol]
	if !ok || position.Side != types.TradeSideLong {
		return nil
	}

	execPrice := price * (1 - p.slippageRate)
	closeQty := math.Min(position.Quantity, order.Quantity)
	commission := closeQty * execPrice * p.commissionRate

	pnl, _ := decimal.NewFromFloat(execPrice - position.AvgEntryPrice).
		Mul(decimal.NewFromFloat(closeQty)).
		Sub(decimal.NewFromFloat(commission)).
		Float64()

	proceeds, _ := decimal.NewFromFloat(closeQty).
		Mul(decimal.NewFromFloat(execPrice)).
		Sub(decimal.NewFromFloat(commission)).
		Float64()

	p.cash, _ = decimal.NewFromFloat(p.cash).Add(decimal.NewFromFloat(proceeds)).Float64()

	lastClosed := p.closeTrades(position, closeQty, commission, execPrice, timestamp)

	position.Quantity -= closeQty
	position.RealizedPnL += pnl

	if position.Quantity <= 1e-9 {
		delete(p.positions, order.Symbol)
	} else {
		position.UnrealizedPnL = (position.CurrentPrice - position.AvgEntryPrice) * position.Quantity
	}

	order.Status = types.OrderStatusFilled
	order.FilledAt = optional.Some(timestamp)
	order.FilledPrice = execPrice
	order.FilledQuantity = closeQty

	return lastClosed
}

// closeTrades closes the position's open trades FIFO up to closeQty, stamping
// exit fields and allocating pnl and commission pro rata. A trade only partly
// covered is split: the closed part becomes a new closed trade record.
func (p *Portfolio) closeTrades(position *types.Position, closeQty, commission, execPrice float64, timestamp time.Time) *types.Trade {
	remaining := closeQty

	var lastClosed *types.Trade

	for i := range p.trades {
		if remaining <= 1e-9 {
			break
		}

		trade := &p.trades[i]
		if trade.Symbol != position.Symbol || trade.Status != types.TradeStatusOpen {
			continue
		}

		if trade.Quantity <= remaining+1e-9 {
			qty := trade.Quantity
			share := commission * (qty / closeQty)
			tradePnL := (execPrice-position.AvgEntryPrice)*qty - share

			trade.Status = types.TradeStatusClosed
			trade.ExitPrice = optional.Some(execPrice)
			trade.ExitTime = optional.Some(timestamp)
			trade.Fees += share
			trade.PnL = tradePnL
			trade.PnLPercent = pnlPercent(tradePnL, position.AvgEntryPrice, qty)

			remaining -= qty
			lastClosed = trade

			continue
		}

		// Partial close: split off the closed quantity
		share := commission * (remaining / closeQty)
		tradePnL := (execPrice-position.AvgEntryPrice)*remaining - share

		p.nextTradeID++
		closed := types.Trade{
			ID:         p.nextTradeID,
			Symbol:     trade.Symbol,
			Side:       trade.Side,
			Quantity:   remaining,
			EntryPrice: trade.EntryPrice,
			EntryTime:  trade.EntryTime,
			ExitPrice:  optional.Some(execPrice),
			ExitTime:   optional.Some(timestamp),
			Fees:       share,
			PnL:        tradePnL,
			PnLPercent: pnlPercent(tradePnL, position.AvgEntryPrice, remaining),
			Status:     types.TradeStatusClosed,
		}

		trade.Quantity -= remaining
		p.trades = append(p.trades, closed)
		lastClosed = &p.trades[len(p.trades)-1]
		remaining = 0
	}

	return lastClosed
}

// UpdatePrices marks all open positions to the given prices, recomputes
// equity and drawdown against the running high-water mark, and appends a
// snapshot. It must be called exactly once per simulated bar, before any
// orders for that bar are executed.
func (p *Portfolio) UpdatePrices(marks map[string]float64, timestamp time.Time) {
	for symbol, price := range marks {
		p.lastPrices[symbol] = price

		position, ok := p.positions[symbol]
		if !ok {
			continue
		}

		position.CurrentPrice = price

		direction := 1.0
		if position.Side == types.TradeSideShort {
			direction = -1.0
		}

		position.UnrealizedPnL = (price - position.AvgEntryPrice) * position.Quantity * direction
	}

	equity := p.GetEquity(marks)

	if equity > p.highWaterMark {
		p.highWaterMark = equity
	}

	drawdown := p.highWaterMark - equity

	var drawdownPct float64
	if p.highWaterMark > 0 {
		drawdownPct = drawdown / p.highWaterMark
	}

	positionsValue := equity - p.cash

	snapshot := types.PortfolioSnapshot{
		Time:            timestamp,
		Equity:          equity,
		Cash:            p.cash,
		PositionsValue:  positionsValue,
		Positions:       p.OpenPositions(),
		Drawdown:        drawdown,
		DrawdownPercent: drawdownPct,
	}
	p.snapshots = append(p.snapshots, snapshot)
}

// LastPrice returns the most recent mark seen for a symbol.
func (p *Portfolio) LastPrice(symbol string) (float64, bool) {
	price, ok := p.lastPrices[symbol]

	return price, ok
}

func (p *Portfolio) findOrder(orderID int64) *types.Order {
	for i := range p.orders {
		if p.orders[i].ID == orderID {
			return &p.orders[i]
		}
	}

	return nil
}

func pnlPercent(pnl, entryPrice, quantity float64) float64 {
	basis := entryPrice * quantity
	if basis == 0 {
		return 0
	}

	return pnl / basis
}

func clonePosition(position *types.Position) types.Position {
	clone := *position
	clone.TradeIDs = append([]int64(nil), position.TradeIDs...)

	return clone
}
