// Package metrics computes post-hoc performance statistics over a finished
// run's snapshot and trade history. All functions are pure; nothing here
// mutates portfolio state.
package metrics

import (
	"math"
	"time"

	"github.com/quantfold/backtest/internal/types"
)

const (
	// tradingDaysPerYear is the annualization factor for bar-level statistics.
	tradingDaysPerYear = 252
	// daysPerYear uses the astronomical year for wall-clock annualization.
	daysPerYear = 365.25
)

// Calculator computes PerformanceMetrics. RiskFreeRate is the annual rate
// subtracted in Sharpe-style ratios.
type Calculator struct {
	RiskFreeRate float64
}

// NewCalculator returns a Calculator with the given annual risk-free rate.
func NewCalculator(riskFreeRate float64) *Calculator {
	return &Calculator{RiskFreeRate: riskFreeRate}
}

// Calculate computes the full metrics set over the run's snapshots and trades.
func (c *Calculator) Calculate(snapshots []types.PortfolioSnapshot, trades []types.Trade, startDate, endDate time.Time) types.PerformanceMetrics {
	var m types.PerformanceMetrics

	if len(snapshots) == 0 {
		return m
	}

	returns := Returns(snapshots)

	first := snapshots[0].Equity
	last := snapshots[len(snapshots)-1].Equity

	if first != 0 {
		m.TotalReturn = (last - first) / first
	}

	years := endDate.Sub(startDate).Hours() / 24 / daysPerYear
	if years > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, 1/years) - 1

		if first > 0 {
			m.CAGR = math.Pow(last/first, 1/years) - 1
		}
	}

	m.Volatility = stdDev(returns) * math.Sqrt(tradingDaysPerYear)

	if len(returns) > 0 && m.Volatility != 0 {
		m.SharpeRatio = (mean(returns)*tradingDaysPerYear - c.RiskFreeRate) / m.Volatility
	}

	m.SortinoRatio = c.sortino(returns)

	m.MaxDrawdown, m.MaxDrawdownDuration = maxDrawdown(snapshots)

	if m.MaxDrawdown == 0 {
		m.CalmarRatio = math.Inf(1)
	} else {
		m.CalmarRatio = m.AnnualizedReturn / m.MaxDrawdown
	}

	c.tradeStats(&m, trades)
	exposureStats(&m, snapshots)

	return m
}

// Returns derives the per-bar simple return series from an equity snapshot
// series. A zero prior equity contributes a zero return.
func Returns(snapshots []types.PortfolioSnapshot) []float64 {
	if len(snapshots) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(snapshots)-1)

	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)

			continue
		}

		returns = append(returns, (snapshots[i].Equity-prev)/prev)
	}

	return returns
}

func (c *Calculator) sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var negatives []float64
	for _, r := range returns {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}

	if len(negatives) == 0 {
		return math.Inf(1)
	}

	downside := stdDev(negatives) * math.Sqrt(tradingDaysPerYear)
	if downside == 0 {
		return 0
	}

	return (mean(returns)*tradingDaysPerYear - c.RiskFreeRate) / downside
}

// maxDrawdown walks the snapshot series tracking the running peak and returns
// the deepest fractional drawdown together with the longest drawdown duration
// in days. Duration runs from the bar a drawdown begins to the last bar still
// below the prior peak.
func maxDrawdown(snapshots []types.PortfolioSnapshot) (float64, float64) {
	var (
		maxDD       float64
		maxDuration float64
	)

	peak := snapshots[0].Equity
	drawdownStart := time.Time{}

	for _, snapshot := range snapshots {
		if snapshot.Equity > peak {
			peak = snapshot.Equity
			drawdownStart = time.Time{}

			continue
		}

		if peak == 0 {
			continue
		}

		dd := (peak - snapshot.Equity) / peak
		if dd > 0 && drawdownStart.IsZero() {
			drawdownStart = snapshot.Time
		}

		if dd > maxDD {
			maxDD = dd
		}

		if !drawdownStart.IsZero() {
			duration := snapshot.Time.Sub(drawdownStart).Hours() / 24
			if duration > maxDuration {
				maxDuration = duration
			}
		}
	}

	return maxDD, maxDuration
}

func (c *Calculator) tradeStats(m *types.PerformanceMetrics, trades []types.Trade) {
	var (
		closed     []types.Trade
		sumWins    float64
		sumLosses  float64
		durations  float64
		winStreak  int
		lossStreak int
	)

	for _, trade := range trades {
		if trade.Status != types.TradeStatusClosed {
			continue
		}

		closed = append(closed, trade)
	}

	m.TotalTrades = len(closed)
	if len(closed) == 0 {
		return
	}

	for _, trade := range closed {
		if trade.PnL > 0 {
			m.WinningTrades++
			sumWins += trade.PnL
			winStreak++
			lossStreak = 0
		} else {
			m.LosingTrades++
			sumLosses += trade.PnL
			lossStreak++
			winStreak = 0
		}

		if winStreak > m.LongestWinStreak {
			m.LongestWinStreak = winStreak
		}

		if lossStreak > m.LongestLossStreak {
			m.LongestLossStreak = lossStreak
		}

		durations += trade.Duration().Hours()
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)

	if m.WinningTrades > 0 {
		m.AverageWin = sumWins / float64(m.WinningTrades)
	}

	if m.LosingTrades > 0 {
		m.AverageLoss = sumLosses / float64(m.LosingTrades)
	}

	if sumLosses == 0 {
		m.ProfitFactor = math.Inf(1)
	} else {
		m.ProfitFactor = sumWins / math.Abs(sumLosses)
	}

	m.AvgTradeDuration = durations / float64(m.TotalTrades)
}

func exposureStats(m *types.PerformanceMetrics, snapshots []types.PortfolioSnapshot) {
	var sum float64

	for _, snapshot := range snapshots {
		if snapshot.Equity == 0 {
			continue
		}

		exposure := snapshot.PositionsValue / snapshot.Equity
		sum += exposure

		if exposure > m.MaxExposure {
			m.MaxExposure = exposure
		}
	}

	m.AvgExposure = sum / float64(len(snapshots))
	m.AvgLeverage = m.AvgExposure
}

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

// stdDev is the sample standard deviation with an N-1 denominator. It returns
// 0 for fewer than two values.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)

	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(values)-1))
}
