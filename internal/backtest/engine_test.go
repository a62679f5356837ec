package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantfold/backtest/internal/config"
	"github.com/quantfold/backtest/internal/datasource"
	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

// stubProvider serves canned bar series per symbol.
type stubProvider struct {
	series map[string][]types.Bar
}

var _ datasource.DataProvider = (*stubProvider)(nil)

func (p *stubProvider) GetOHLCV(_ context.Context, symbol string, _ string, start, end time.Time) ([]types.Bar, error) {
	bars, ok := p.series[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no data for %s", symbol)
	}

	var filtered []types.Bar

	for _, bar := range bars {
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered, nil
}

func (p *stubProvider) GetLatestPrice(_ context.Context, symbol string) (float64, error) {
	bars := p.series[symbol]
	if len(bars) == 0 {
		return 0, errors.Newf(errors.ErrCodeNoDataFound, "no data for %s", symbol)
	}

	return bars[len(bars)-1].Close, nil
}

// scriptedStrategy emits a fixed signal per bar timestamp.
type scriptedStrategy struct {
	signals map[int64][]types.Signal
	calls   int
}

func (s *scriptedStrategy) Name() string           { return "scripted" }
func (s *scriptedStrategy) Description() string    { return "emits pre-scripted signals" }
func (s *scriptedStrategy) Params() map[string]any { return nil }
func (s *scriptedStrategy) Reset()                 { s.calls = 0 }

func (s *scriptedStrategy) GenerateSignals(bars []types.Bar, _ []types.Position) ([]types.Signal, error) {
	s.calls++

	last := bars[len(bars)-1]

	return s.signals[last.Time.UnixNano()], nil
}

type EngineTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupSuite() {
	s.log = logger.NewNopLogger()
}

func (s *EngineTestSuite) newEngine() *Engine {
	cfg := config.DefaultConfig()
	cfg.Slippage = 0
	cfg.Commission = 0

	return NewEngine(cfg, s.log)
}

// flatSeries returns count daily bars at a constant price.
func flatSeries(symbol string, start time.Time, count int, price float64) []types.Bar {
	bars := make([]types.Bar, count)
	for i := range bars {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 1000,
		}
	}

	return bars
}

func (s *EngineTestSuite) TestRunWithoutStrategyFails() {
	engine := s.newEngine()
	engine.SetDataProvider(&stubProvider{})

	_, err := engine.Run(context.Background(), Options{Symbols: []string{"BTCUSDT"}})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotSet))
}

func (s *EngineTestSuite) TestRunWithoutProviderFails() {
	engine := s.newEngine()
	engine.SetStrategy(&scriptedStrategy{})

	_, err := engine.Run(context.Background(), Options{Symbols: []string{"BTCUSDT"}})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeProviderNotSet))
}

func (s *EngineTestSuite) TestRunWithoutSymbolsFails() {
	engine := s.newEngine()
	engine.SetStrategy(&scriptedStrategy{})
	engine.SetDataProvider(&stubProvider{})

	_, err := engine.Run(context.Background(), Options{})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeNoSymbols))
}

func (s *EngineTestSuite) TestWarmupBarsAreNotTraded() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := flatSeries("BTCUSDT", start, 30, 100)

	strat := &scriptedStrategy{signals: map[int64][]types.Signal{}}

	engine := s.newEngine()
	engine.SetStrategy(strat)
	engine.SetDataProvider(&stubProvider{series: map[string][]types.Bar{"BTCUSDT": bars}})

	result, err := engine.Run(context.Background(), Options{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 30),
		Symbols:   []string{"BTCUSDT"},
		Interval:  "1d",
	})
	s.Require().NoError(err)

	// 30 bars, the first 20 are warmup, so the strategy runs 10 times
	s.Equal(10, strat.calls)
	// every bar still produces a snapshot
	s.Len(result.Snapshots, 30)
}

func (s *EngineTestSuite) TestBuySignalCommitsTenPercentOfEquity() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := flatSeries("BTCUSDT", start, 30, 100)

	buyBar := bars[25]
	strat := &scriptedStrategy{signals: map[int64][]types.Signal{
		buyBar.Time.UnixNano(): {{Symbol: "BTCUSDT", Action: types.SignalActionBuy}},
	}}

	engine := s.newEngine()
	engine.SetStrategy(strat)
	engine.SetDataProvider(&stubProvider{series: map[string][]types.Bar{"BTCUSDT": bars}})

	result, err := engine.Run(context.Background(), Options{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 30),
		Symbols:   []string{"BTCUSDT"},
		Interval:  "1d",
	})
	s.Require().NoError(err)

	// 10% of 10000 equity at price 100 buys 10 units, force-closed at the
	// same flat price, so equity ends where it began
	s.Require().Len(result.Trades, 1)
	s.InDelta(10, result.Trades[0].Quantity, 1e-9)
	s.InDelta(10000, result.FinalEquity, 1e-9)
	s.Empty(engine.Portfolio().OpenPositions())
}

func (s *EngineTestSuite) TestSellLiquidatesWholePosition() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := flatSeries("BTCUSDT", start, 30, 100)
	// price rises to 110 for the sell bar
	for i := 27; i < 30; i++ {
		bars[i].Close = 110
		bars[i].High = 110
	}

	strat := &scriptedStrategy{signals: map[int64][]types.Signal{
		bars[22].Time.UnixNano(): {{Symbol: "BTCUSDT", Action: types.SignalActionBuy}},
		bars[28].Time.UnixNano(): {{Symbol: "BTCUSDT", Action: types.SignalActionSell}},
	}}

	engine := s.newEngine()
	engine.SetStrategy(strat)
	engine.SetDataProvider(&stubProvider{series: map[string][]types.Bar{"BTCUSDT": bars}})

	result, err := engine.Run(context.Background(), Options{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 30),
		Symbols:   []string{"BTCUSDT"},
		Interval:  "1d",
	})
	s.Require().NoError(err)

	// bought 10 units at 100, sold all at 110, pnl = 100
	s.Require().Len(result.Trades, 1)
	s.Equal(types.TradeStatusClosed, result.Trades[0].Status)
	s.InDelta(100, result.Trades[0].PnL, 1e-9)
	s.InDelta(10100, result.FinalEquity, 1e-9)
}

func (s *EngineTestSuite) TestTimelineFollowsFirstSymbolOnly() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := flatSeries("BTCUSDT", start, 30, 100)
	// second symbol's bars are offset by an hour and never match the timeline
	second := flatSeries("ETHUSDT", start.Add(time.Hour), 30, 50)

	strat := &scriptedStrategy{signals: map[int64][]types.Signal{
		first[25].Time.UnixNano(): {
			{Symbol: "BTCUSDT", Action: types.SignalActionBuy},
			{Symbol: "ETHUSDT", Action: types.SignalActionBuy},
		},
	}}

	engine := s.newEngine()
	engine.SetStrategy(strat)
	engine.SetDataProvider(&stubProvider{series: map[string][]types.Bar{
		"BTCUSDT": first,
		"ETHUSDT": second,
	}})

	result, err := engine.Run(context.Background(), Options{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 31),
		Symbols:   []string{"BTCUSDT", "ETHUSDT"},
		Interval:  "1d",
	})
	s.Require().NoError(err)

	// the misaligned symbol never gets a mark, so only BTCUSDT traded
	s.Require().Len(result.Trades, 1)
	s.Equal("BTCUSDT", result.Trades[0].Symbol)
}

func (s *EngineTestSuite) TestBuyAndHoldReturn() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := flatSeries("BTCUSDT", start, 30, 100)
	bars[29].Close = 120

	engine := s.newEngine()
	engine.SetStrategy(&scriptedStrategy{})
	engine.SetDataProvider(&stubProvider{series: map[string][]types.Bar{"BTCUSDT": bars}})

	result, err := engine.Run(context.Background(), Options{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 30),
		Symbols:   []string{"BTCUSDT"},
		Interval:  "1d",
	})
	s.Require().NoError(err)

	s.InDelta(0.2, result.BuyAndHoldReturn, 1e-9)
	s.NotEmpty(result.ID)
	s.Equal([]string{"BTCUSDT"}, result.Symbols)
}

func (s *EngineTestSuite) TestOnBarProgressCallback() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := flatSeries("BTCUSDT", start, 25, 100)

	engine := s.newEngine()
	engine.SetStrategy(&scriptedStrategy{})
	engine.SetDataProvider(&stubProvider{series: map[string][]types.Bar{"BTCUSDT": bars}})

	var seen []int

	_, err := engine.Run(context.Background(), Options{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 25),
		Symbols:   []string{"BTCUSDT"},
		Interval:  "1d",
		OnBar: func(current, total int) {
			s.Equal(25, total)
			seen = append(seen, current)
		},
	})
	s.Require().NoError(err)

	s.Len(seen, 25)
	s.Equal(1, seen[0])
	s.Equal(25, seen[24])
}

func (s *EngineTestSuite) TestRepeatedRunsAreIndependent() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := flatSeries("BTCUSDT", start, 30, 100)

	strat := &scriptedStrategy{signals: map[int64][]types.Signal{
		bars[25].Time.UnixNano(): {{Symbol: "BTCUSDT", Action: types.SignalActionBuy}},
	}}

	engine := s.newEngine()
	engine.SetStrategy(strat)
	engine.SetDataProvider(&stubProvider{series: map[string][]types.Bar{"BTCUSDT": bars}})

	options := Options{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 30),
		Symbols:   []string{"BTCUSDT"},
		Interval:  "1d",
	}

	first, err := engine.Run(context.Background(), options)
	s.Require().NoError(err)

	second, err := engine.Run(context.Background(), options)
	s.Require().NoError(err)

	s.Len(second.Trades, len(first.Trades))
	s.InDelta(first.FinalEquity, second.FinalEquity, 1e-9)
	s.Len(second.Snapshots, len(first.Snapshots))
}
