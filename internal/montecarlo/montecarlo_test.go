package montecarlo

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/quantfold/backtest/internal/types"
)

type MonteCarloTestSuite struct {
	suite.Suite
}

func TestMonteCarloTestSuite(t *testing.T) {
	suite.Run(t, new(MonteCarloTestSuite))
}

func closedTrade(pnlPercent float64) types.Trade {
	return types.Trade{
		Status:     types.TradeStatusClosed,
		PnLPercent: pnlPercent,
		ExitTime:   optional.Some(time.Now()),
	}
}

func (s *MonteCarloTestSuite) newSimulator() *Simulator {
	cfg := DefaultConfig(10000)
	cfg.Simulations = 200
	cfg.TradesPerSimulation = 50
	cfg.PeriodsPerSimulation = 50
	cfg.Seed = 42

	return NewSimulator(cfg)
}

func (s *MonteCarloTestSuite) TestTradeResamplingNoClosedTrades() {
	sim := s.newSimulator()

	result := sim.RunTradeResampling([]types.Trade{
		{Status: types.TradeStatusOpen, PnLPercent: 0.5},
	})

	s.Empty(result.Outcomes)
	s.Zero(result.P50)
	s.Zero(result.ProbProfit)
}

func (s *MonteCarloTestSuite) TestReturnResamplingEmptyReturns() {
	sim := s.newSimulator()

	result := sim.RunReturnResampling(nil)
	s.Empty(result.Outcomes)
	s.Zero(result.P95)
}

func (s *MonteCarloTestSuite) TestAllWinningTradesAlwaysProfit() {
	sim := s.newSimulator()

	result := sim.RunTradeResampling([]types.Trade{
		closedTrade(0.01),
		closedTrade(0.02),
	})

	s.Len(result.Outcomes, 200)
	s.InDelta(1.0, result.ProbProfit, 1e-9)
	s.Zero(result.ProbLoss)
	s.Zero(result.ProbRuin)

	for _, outcome := range result.Outcomes {
		s.Greater(outcome.FinalEquity, 10000.0)
		s.Zero(outcome.MaxDrawdown)
	}
}

func (s *MonteCarloTestSuite) TestRuinPathsPinToZero() {
	sim := s.newSimulator()

	// every draw wipes the account
	result := sim.RunTradeResampling([]types.Trade{closedTrade(-1)})

	s.InDelta(1.0, result.ProbRuin, 1e-9)
	s.InDelta(1.0, result.ProbLoss, 1e-9)

	for _, outcome := range result.Outcomes {
		s.Zero(outcome.FinalEquity)
		s.InDelta(-1, outcome.TotalReturn, 1e-9)
		s.InDelta(1, outcome.MaxDrawdown, 1e-9)
	}
}

func (s *MonteCarloTestSuite) TestPercentilesAreOrdered() {
	sim := s.newSimulator()

	result := sim.RunReturnResampling([]float64{-0.03, -0.01, 0, 0.01, 0.02, 0.03})

	s.LessOrEqual(result.P5, result.P25)
	s.LessOrEqual(result.P25, result.P50)
	s.LessOrEqual(result.P50, result.P75)
	s.LessOrEqual(result.P75, result.P95)

	for i := 1; i < len(result.Outcomes); i++ {
		s.LessOrEqual(result.Outcomes[i-1].FinalEquity, result.Outcomes[i].FinalEquity)
	}
}

func (s *MonteCarloTestSuite) TestSeedReproducibility() {
	first := s.newSimulator().RunReturnResampling([]float64{-0.02, 0.01, 0.03})
	second := s.newSimulator().RunReturnResampling([]float64{-0.02, 0.01, 0.03})

	s.Equal(first.P50, second.P50)
	s.Equal(first.Outcomes, second.Outcomes)

	cfg := DefaultConfig(10000)
	cfg.Simulations = 200
	cfg.PeriodsPerSimulation = 50
	cfg.Seed = 43

	third := NewSimulator(cfg).RunReturnResampling([]float64{-0.02, 0.01, 0.03})
	s.NotEqual(first.Outcomes, third.Outcomes)
}

func (s *MonteCarloTestSuite) TestDoublingProbability() {
	sim := s.newSimulator()

	// 50 draws of +2% compound to about 2.69x
	result := sim.RunTradeResampling([]types.Trade{closedTrade(0.02)})

	s.InDelta(1.0, result.ProbDoubling, 1e-9)
}
