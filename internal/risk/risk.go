// Package risk provides standalone risk analytics over a run's snapshot,
// trade, and return history. Every function is pure and tolerates empty
// input by returning zero values instead of failing.
package risk

import (
	"math"
	"sort"
	"time"

	"github.com/quantfold/backtest/internal/types"
)

// zScores maps confidence levels to standard normal quantiles for the
// parametric VaR approximation.
var zScores = map[float64]float64{
	0.90: 1.28,
	0.95: 1.645,
	0.99: 2.33,
}

const defaultZScore = 1.645

// VaRResult holds historical Value-at-Risk figures at the two standard
// confidence levels. Positive values are losses.
type VaRResult struct {
	VaR95  float64 `yaml:"var_95" json:"var_95"`
	CVaR95 float64 `yaml:"cvar_95" json:"cvar_95"`
	VaR99  float64 `yaml:"var_99" json:"var_99"`
	CVaR99 float64 `yaml:"cvar_99" json:"cvar_99"`
}

// DrawdownPeriod records one completed peak-to-recovery episode.
type DrawdownPeriod struct {
	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`
	// Depth is the fractional loss from the peak to the trough.
	Depth float64 `yaml:"depth" json:"depth"`
	// Duration is days spent in drawdown, Recovery days from trough to the
	// bar making a new peak.
	Duration float64 `yaml:"duration" json:"duration"`
	Recovery float64 `yaml:"recovery" json:"recovery"`
}

// DrawdownAnalysis summarizes drawdown behavior across a run.
type DrawdownAnalysis struct {
	Periods []DrawdownPeriod `yaml:"periods" json:"periods"`

	CurrentDrawdown float64 `yaml:"current_drawdown" json:"current_drawdown"`
	MaxDrawdown     float64 `yaml:"max_drawdown" json:"max_drawdown"`
	AvgDrawdown     float64 `yaml:"avg_drawdown" json:"avg_drawdown"`
}

// ConcentrationRisk measures how concentrated position value was across the
// run, averaged per snapshot.
type ConcentrationRisk struct {
	// AvgHerfindahl is the mean sum of squared position weights.
	AvgHerfindahl float64 `yaml:"avg_herfindahl" json:"avg_herfindahl"`
	AvgMaxWeight  float64 `yaml:"avg_max_weight" json:"avg_max_weight"`
}

// TailRisk describes the shape of the return distribution's tails.
type TailRisk struct {
	Skewness       float64 `yaml:"skewness" json:"skewness"`
	ExcessKurtosis float64 `yaml:"excess_kurtosis" json:"excess_kurtosis"`
	// TailRatio is |p5| / |p95| of the sorted return series.
	TailRatio float64 `yaml:"tail_ratio" json:"tail_ratio"`
}

// TradeRisk summarizes per-trade outcomes over closed trades only.
type TradeRisk struct {
	LargestWin  float64 `yaml:"largest_win" json:"largest_win"`
	LargestLoss float64 `yaml:"largest_loss" json:"largest_loss"`
	AvgWin      float64 `yaml:"avg_win" json:"avg_win"`
	AvgLoss     float64 `yaml:"avg_loss" json:"avg_loss"`
	// WinLossRatio is AvgWin over |AvgLoss|, infinite when no trade lost.
	WinLossRatio float64 `yaml:"win_loss_ratio" json:"win_loss_ratio"`
}

// CalculateVaR computes historical VaR and CVaR at 95% and 99% confidence
// from a per-bar return series.
func CalculateVaR(returns []float64) VaRResult {
	var result VaRResult

	if len(returns) == 0 {
		return result
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	result.VaR95, result.CVaR95 = historicalVaR(sorted, 0.95)
	result.VaR99, result.CVaR99 = historicalVaR(sorted, 0.99)

	return result
}

// historicalVaR takes an ascending-sorted return series. VaR is the negated
// value at the floor(n * (1 - confidence)) index; CVaR is the negated mean of
// all values at or below it.
func historicalVaR(sorted []float64, confidence float64) (float64, float64) {
	index := int(float64(len(sorted)) * (1 - confidence))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	var sum float64
	for _, r := range sorted[:index+1] {
		sum += r
	}

	return -sorted[index], -(sum / float64(index+1))
}

// CalculateParametricVaR computes mean - z * stdDev for the given confidence
// level, using a normal approximation. Unknown confidence levels fall back to
// the 95% z-score.
func CalculateParametricVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	z, ok := zScores[confidence]
	if !ok {
		z = defaultZScore
	}

	return mean(returns) - z*stdDev(returns)
}

// AnalyzeDrawdowns walks the snapshot series and extracts completed drawdown
// periods plus the running current, max, and average drawdown figures.
func AnalyzeDrawdowns(snapshots []types.PortfolioSnapshot) DrawdownAnalysis {
	var analysis DrawdownAnalysis

	if len(snapshots) == 0 {
		return analysis
	}

	var (
		peak       = snapshots[0].Equity
		inDrawdown bool
		start      time.Time
		trough     float64
		troughTime time.Time
		ddSum      float64
	)

	for _, snapshot := range snapshots {
		if snapshot.Equity >= peak {
			if inDrawdown {
				depth := 0.0
				if peak > 0 {
					depth = (peak - trough) / peak
				}

				analysis.Periods = append(analysis.Periods, DrawdownPeriod{
					Start:    start,
					End:      snapshot.Time,
					Depth:    depth,
					Duration: snapshot.Time.Sub(start).Hours() / 24,
					Recovery: snapshot.Time.Sub(troughTime).Hours() / 24,
				})

				inDrawdown = false
			}

			peak = snapshot.Equity

			continue
		}

		if !inDrawdown {
			inDrawdown = true
			start = snapshot.Time
			trough = snapshot.Equity
			troughTime = snapshot.Time
		} else if snapshot.Equity < trough {
			trough = snapshot.Equity
			troughTime = snapshot.Time
		}
	}

	for _, snapshot := range snapshots {
		ddSum += snapshot.DrawdownPercent

		if snapshot.DrawdownPercent > analysis.MaxDrawdown {
			analysis.MaxDrawdown = snapshot.DrawdownPercent
		}
	}

	analysis.CurrentDrawdown = snapshots[len(snapshots)-1].DrawdownPercent
	analysis.AvgDrawdown = ddSum / float64(len(snapshots))

	return analysis
}

// CalculateConcentration averages the per-snapshot Herfindahl index and max
// single-position weight over mark-to-market position value. Snapshots with
// no position value contribute zero.
func CalculateConcentration(snapshots []types.PortfolioSnapshot) ConcentrationRisk {
	var result ConcentrationRisk

	if len(snapshots) == 0 {
		return result
	}

	var herfindahlSum, maxWeightSum float64

	for _, snapshot := range snapshots {
		var total float64
		for i := range snapshot.Positions {
			total += snapshot.Positions[i].MarketValue()
		}

		if total == 0 {
			continue
		}

		var herfindahl, maxWeight float64
		for i := range snapshot.Positions {
			weight := snapshot.Positions[i].MarketValue() / total
			herfindahl += weight * weight

			if weight > maxWeight {
				maxWeight = weight
			}
		}

		herfindahlSum += herfindahl
		maxWeightSum += maxWeight
	}

	result.AvgHerfindahl = herfindahlSum / float64(len(snapshots))
	result.AvgMaxWeight = maxWeightSum / float64(len(snapshots))

	return result
}

// CalculateTailRisk computes the standardized third and fourth moments of
// the return distribution plus the p5/p95 tail ratio.
func CalculateTailRisk(returns []float64) TailRisk {
	var result TailRisk

	if len(returns) == 0 {
		return result
	}

	m := mean(returns)
	sigma := populationStdDev(returns, m)

	if sigma > 0 {
		var skew, kurt float64

		for _, r := range returns {
			z := (r - m) / sigma
			skew += z * z * z
			kurt += z * z * z * z
		}

		n := float64(len(returns))
		result.Skewness = skew / n
		result.ExcessKurtosis = kurt/n - 3
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	p5 := sorted[int(float64(len(sorted))*0.05)]
	p95 := sorted[min(int(float64(len(sorted))*0.95), len(sorted)-1)]

	if p95 != 0 {
		result.TailRatio = math.Abs(p5) / math.Abs(p95)
	}

	return result
}

// CalculateTradeRisk summarizes closed-trade outcomes. An empty or all-open
// trade list returns the zero value.
func CalculateTradeRisk(trades []types.Trade) TradeRisk {
	var (
		result    TradeRisk
		sumWins   float64
		sumLosses float64
		wins      int
		losses    int
	)

	for _, trade := range trades {
		if trade.Status != types.TradeStatusClosed {
			continue
		}

		if trade.PnL > 0 {
			wins++
			sumWins += trade.PnL

			if trade.PnL > result.LargestWin {
				result.LargestWin = trade.PnL
			}
		} else {
			losses++
			sumLosses += trade.PnL

			if trade.PnL < result.LargestLoss {
				result.LargestLoss = trade.PnL
			}
		}
	}

	if wins == 0 && losses == 0 {
		return result
	}

	if wins > 0 {
		result.AvgWin = sumWins / float64(wins)
	}

	if losses > 0 {
		result.AvgLoss = sumLosses / float64(losses)
	}

	if losses == 0 {
		result.WinLossRatio = math.Inf(1)
	} else if result.AvgLoss != 0 {
		result.WinLossRatio = result.AvgWin / math.Abs(result.AvgLoss)
	}

	return result
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

func populationStdDev(values []float64, m float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(values)))
}
