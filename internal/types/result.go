package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PerformanceMetrics holds the post-hoc statistics computed over a finished
// run's snapshots and trades.
type PerformanceMetrics struct {
	TotalReturn      float64 `yaml:"total_return" json:"total_return"`
	AnnualizedReturn float64 `yaml:"annualized_return" json:"annualized_return"`
	CAGR             float64 `yaml:"cagr" json:"cagr"`
	// Volatility is the annualized sample standard deviation of per-bar returns.
	Volatility   float64 `yaml:"volatility" json:"volatility"`
	SharpeRatio  float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	CalmarRatio  float64 `yaml:"calmar_ratio" json:"calmar_ratio"`

	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// MaxDrawdownDuration is measured in days from the start of a drawdown to
	// recovery, not to the trough.
	MaxDrawdownDuration float64 `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`

	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	AverageWin    float64 `yaml:"average_win" json:"average_win"`
	AverageLoss   float64 `yaml:"average_loss" json:"average_loss"`
	ProfitFactor  float64 `yaml:"profit_factor" json:"profit_factor"`
	// AvgTradeDuration is the mean holding time of closed trades in hours.
	AvgTradeDuration   float64 `yaml:"avg_trade_duration" json:"avg_trade_duration"`
	LongestWinStreak   int     `yaml:"longest_win_streak" json:"longest_win_streak"`
	LongestLossStreak  int     `yaml:"longest_loss_streak" json:"longest_loss_streak"`

	AvgExposure float64 `yaml:"avg_exposure" json:"avg_exposure"`
	MaxExposure float64 `yaml:"max_exposure" json:"max_exposure"`
	// AvgLeverage equals AvgExposure for the non-margin case.
	AvgLeverage float64 `yaml:"avg_leverage" json:"avg_leverage"`
}

// BacktestResult is the sole externally consumed artifact of a run.
type BacktestResult struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// RanAt is when this backtest run was executed.
	RanAt time.Time `yaml:"ran_at" json:"ran_at"`

	Symbols  []string `yaml:"symbols" json:"symbols"`
	Interval string   `yaml:"interval" json:"interval"`

	StartDate time.Time `yaml:"start_date" json:"start_date"`
	EndDate   time.Time `yaml:"end_date" json:"end_date"`

	InitialCapital     float64 `yaml:"initial_capital" json:"initial_capital"`
	FinalEquity        float64 `yaml:"final_equity" json:"final_equity"`
	TotalReturn        float64 `yaml:"total_return" json:"total_return"`
	TotalReturnPercent float64 `yaml:"total_return_percent" json:"total_return_percent"`
	// BuyAndHoldReturn is what the same capital in the first symbol from first
	// to last close would have returned.
	BuyAndHoldReturn float64 `yaml:"buy_and_hold_return" json:"buy_and_hold_return"`

	Trades    []Trade             `yaml:"-" json:"trades"`
	Snapshots []PortfolioSnapshot `yaml:"-" json:"snapshots"`

	Metrics PerformanceMetrics `yaml:"metrics" json:"metrics"`
}

// WriteSummary writes the result header and metrics to a YAML file. The full
// trade and snapshot lists are persisted separately by the result store.
func (r *BacktestResult) WriteSummary(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result summary to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result summary to file: %w", err)
	}

	return nil
}
