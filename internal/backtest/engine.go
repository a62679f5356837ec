// Package backtest contains the event-driven simulation engine and the
// result store. The engine drives a strategy over historical bars against an
// in-memory portfolio and produces a BacktestResult.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantfold/backtest/internal/config"
	"github.com/quantfold/backtest/internal/datasource"
	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/metrics"
	"github.com/quantfold/backtest/internal/portfolio"
	"github.com/quantfold/backtest/internal/strategy"
	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

const (
	// defaultWarmupPeriod is how many leading bars are marked but not traded.
	defaultWarmupPeriod = 20
	// windowSize caps the trailing bar window handed to the strategy.
	windowSize = 100
	// positionSizeFraction of current equity is committed per buy signal.
	positionSizeFraction = 0.10
)

// Options describes one backtest run.
type Options struct {
	StartDate time.Time
	EndDate   time.Time
	Symbols   []string
	Interval  string
	// WarmupPeriod defaults to 20 when not positive.
	WarmupPeriod int
	// OnBar, when set, is called after every processed bar with the 1-based
	// bar number and the total bar count.
	OnBar func(current, total int)
}

// Engine runs backtests. A single Engine must not execute two runs
// concurrently; portfolio state is mutated in place bar by bar.
type Engine struct {
	cfg       config.Config
	portfolio *portfolio.Portfolio
	calc      *metrics.Calculator

	strategy strategy.Strategy
	provider datasource.DataProvider

	log *logger.Logger
}

// NewEngine creates an engine with a freshly funded portfolio.
func NewEngine(cfg config.Config, log *logger.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		portfolio: portfolio.New(cfg, log),
		calc:      metrics.NewCalculator(cfg.RiskFreeRate),
		log:       log,
	}
}

// SetStrategy sets the strategy under test.
func (e *Engine) SetStrategy(s strategy.Strategy) {
	e.strategy = s
}

// SetDataProvider sets the market data source.
func (e *Engine) SetDataProvider(p datasource.DataProvider) {
	e.provider = p
}

// Portfolio exposes the engine's portfolio, mainly for inspection in tests
// and reporting.
func (e *Engine) Portfolio() *portfolio.Portfolio {
	return e.portfolio
}

// Run executes a full backtest: fetch, simulate bar by bar, force-close, and
// compute metrics. The timeline iterated is the first symbol's series; bars
// of other symbols that do not share those exact timestamps are not traded.
func (e *Engine) Run(ctx context.Context, options Options) (*types.BacktestResult, error) {
	if e.strategy == nil {
		return nil, errors.New(errors.ErrCodeStrategyNotSet, "no strategy set, call SetStrategy before Run")
	}

	if e.provider == nil {
		return nil, errors.New(errors.ErrCodeProviderNotSet, "no data provider set, call SetDataProvider before Run")
	}

	if len(options.Symbols) == 0 {
		return nil, errors.New(errors.ErrCodeNoSymbols, "at least one symbol is required")
	}

	warmup := options.WarmupPeriod
	if warmup <= 0 {
		warmup = defaultWarmupPeriod
	}

	e.portfolio.Reset()
	e.strategy.Reset()

	series := make(map[string][]types.Bar, len(options.Symbols))
	barsByTime := make(map[string]map[int64]types.Bar, len(options.Symbols))

	for _, symbol := range options.Symbols {
		bars, err := e.provider.GetOHLCV(ctx, symbol, options.Interval, options.StartDate, options.EndDate)
		if err != nil {
			return nil, err
		}

		series[symbol] = bars

		index := make(map[int64]types.Bar, len(bars))
		for _, bar := range bars {
			index[bar.Time.UnixNano()] = bar
		}

		barsByTime[symbol] = index
	}

	timeline := series[options.Symbols[0]]

	e.log.Info("starting backtest",
		zap.String("strategy", e.strategy.Name()),
		zap.Strings("symbols", options.Symbols),
		zap.String("interval", options.Interval),
		zap.Int("bars", len(timeline)),
	)

	// seen accumulates each symbol's bars that matched the timeline, so the
	// strategy window never contains future bars.
	seen := make(map[string][]types.Bar, len(options.Symbols))

	for i, timelineBar := range timeline {
		ts := timelineBar.Time

		marks := make(map[string]float64, len(options.Symbols))

		for _, symbol := range options.Symbols {
			bar, ok := barsByTime[symbol][ts.UnixNano()]
			if !ok {
				// no data for this symbol at this timestamp, no trading
				continue
			}

			marks[symbol] = bar.Close
			seen[symbol] = append(seen[symbol], bar)
		}

		e.portfolio.UpdatePrices(marks, ts)

		if i >= warmup {
			for _, symbol := range options.Symbols {
				if _, ok := marks[symbol]; !ok {
					continue
				}

				window := seen[symbol]
				if len(window) > windowSize {
					window = window[len(window)-windowSize:]
				}

				signals, err := e.strategy.GenerateSignals(window, e.portfolio.OpenPositions())
				if err != nil {
					return nil, errors.Wrapf(errors.ErrCodeStrategySignal, err, "strategy %s failed at %s", e.strategy.Name(), ts.Format(time.RFC3339))
				}

				for _, signal := range signals {
					mark, ok := marks[signal.Symbol]
					if !ok {
						// no mark for this symbol this bar, no trade
						continue
					}

					e.executeSignal(signal, mark, ts)
				}
			}
		}

		if options.OnBar != nil {
			options.OnBar(i+1, len(timeline))
		}
	}

	e.forceCloseAll()

	return e.buildResult(options, timeline), nil
}

// executeSignal applies the fixed-fraction sizing policy: a buy with no
// existing position commits 10% of current equity at the mark, a sell
// liquidates the whole position. Orders fill immediately at the same bar's
// close.
func (e *Engine) executeSignal(signal types.Signal, mark float64, ts time.Time) {
	switch signal.Action {
	case types.SignalActionBuy:
		if _, held := e.portfolio.Position(signal.Symbol); held {
			return
		}

		quantity := positionSizeFraction * e.portfolio.GetEquity(nil) / mark
		if quantity <= 0 {
			return
		}

		order := e.portfolio.PlaceOrder(types.OrderSpec{
			Symbol:   signal.Symbol,
			Side:     types.OrderSideBuy,
			Type:     types.OrderTypeMarket,
			Quantity: quantity,
			Reason:   signal.Reason,
		}, ts)

		e.portfolio.ExecuteOrder(order.ID, mark, ts)

	case types.SignalActionSell:
		position, held := e.portfolio.Position(signal.Symbol)
		if !held {
			return
		}

		order := e.portfolio.PlaceOrder(types.OrderSpec{
			Symbol:   signal.Symbol,
			Side:     types.OrderSideSell,
			Type:     types.OrderTypeMarket,
			Quantity: position.Quantity,
			Reason:   signal.Reason,
		}, ts)

		e.portfolio.ExecuteOrder(order.ID, mark, ts)

	case types.SignalActionHold:
	}
}

// forceCloseAll liquidates every remaining open position at its last known
// price so the final equity is fully realized.
func (e *Engine) forceCloseAll() {
	for _, position := range e.portfolio.OpenPositions() {
		price, ok := e.portfolio.LastPrice(position.Symbol)
		if !ok {
			price = position.CurrentPrice
		}

		snapshots := e.portfolio.Snapshots()
		ts := time.Now()

		if len(snapshots) > 0 {
			ts = snapshots[len(snapshots)-1].Time
		}

		order := e.portfolio.PlaceOrder(types.OrderSpec{
			Symbol:   position.Symbol,
			Side:     types.OrderSideSell,
			Type:     types.OrderTypeMarket,
			Quantity: position.Quantity,
			Reason:   "force close at end of backtest",
		}, ts)

		e.portfolio.ExecuteOrder(order.ID, price, ts)

		e.log.Info("force closed position",
			zap.String("symbol", position.Symbol),
			zap.Float64("quantity", position.Quantity),
			zap.Float64("price", price),
		)
	}
}

func (e *Engine) buildResult(options Options, timeline []types.Bar) *types.BacktestResult {
	snapshots := e.portfolio.Snapshots()
	trades := e.portfolio.Trades()

	finalEquity := e.portfolio.GetEquity(nil)
	initial := e.portfolio.InitialCapital()

	m := e.calc.Calculate(snapshots, trades, options.StartDate, options.EndDate)

	var buyAndHold float64
	if len(timeline) > 0 && timeline[0].Close != 0 {
		buyAndHold = (timeline[len(timeline)-1].Close - timeline[0].Close) / timeline[0].Close
	}

	result := &types.BacktestResult{
		ID:                 uuid.NewString(),
		RanAt:              time.Now(),
		Symbols:            options.Symbols,
		Interval:           options.Interval,
		StartDate:          options.StartDate,
		EndDate:            options.EndDate,
		InitialCapital:     initial,
		FinalEquity:        finalEquity,
		TotalReturn:        finalEquity - initial,
		TotalReturnPercent: (finalEquity - initial) / initial,
		BuyAndHoldReturn:   buyAndHold,
		Trades:             trades,
		Snapshots:          snapshots,
		Metrics:            m,
	}

	e.log.Info("backtest finished",
		zap.String("id", result.ID),
		zap.Float64("final_equity", finalEquity),
		zap.Float64("total_return_percent", result.TotalReturnPercent),
		zap.Int("trades", len(trades)),
	)

	return result
}
