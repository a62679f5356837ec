// Package montecarlo resamples realized trade or return history to estimate
// the distribution of outcomes a strategy could have produced. Paths are
// independent and run across a bounded worker pool; each path draws from its
// own seeded random source so results are reproducible.
package montecarlo

import (
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/quantfold/backtest/internal/types"
)

const tradingDaysPerYear = 252

// Config controls a simulation run. Seed is the base seed; path i uses
// Seed + i so paths never share a random stream.
type Config struct {
	Simulations         int
	TradesPerSimulation int
	// PeriodsPerSimulation is the path length for return resampling.
	PeriodsPerSimulation int
	InitialCapital       float64
	RiskFreeRate         float64
	Seed                 int64
}

// DefaultConfig returns a Config with common simulation parameters.
func DefaultConfig(initialCapital float64) Config {
	return Config{
		Simulations:          1000,
		TradesPerSimulation:  100,
		PeriodsPerSimulation: 252,
		InitialCapital:       initialCapital,
		RiskFreeRate:         0.05,
		Seed:                 1,
	}
}

// Outcome is the result of one simulated path.
type Outcome struct {
	FinalEquity float64 `yaml:"final_equity" json:"final_equity"`
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
}

// Result aggregates all simulated paths. Percentiles cut the outcome
// distribution by final equity.
type Result struct {
	Outcomes []Outcome `yaml:"-" json:"outcomes"`

	P5  float64 `yaml:"p5" json:"p5"`
	P25 float64 `yaml:"p25" json:"p25"`
	P50 float64 `yaml:"p50" json:"p50"`
	P75 float64 `yaml:"p75" json:"p75"`
	P95 float64 `yaml:"p95" json:"p95"`

	ProbProfit float64 `yaml:"prob_profit" json:"prob_profit"`
	ProbLoss   float64 `yaml:"prob_loss" json:"prob_loss"`
	// ProbDoubling is the fraction of paths ending at or above twice the
	// starting capital; ProbRuin at or below a tenth of it.
	ProbDoubling float64 `yaml:"prob_doubling" json:"prob_doubling"`
	ProbRuin     float64 `yaml:"prob_ruin" json:"prob_ruin"`
}

// Simulator runs resampling simulations against realized backtest history.
type Simulator struct {
	cfg Config
}

// NewSimulator creates a Simulator with the given config.
func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

// RunTradeResampling draws trades with replacement from the realized
// closed-trade list, compounding each trade's pnl percent against a running
// equity. With no closed trades it returns a zero-filled Result.
func (s *Simulator) RunTradeResampling(trades []types.Trade) Result {
	var samples []float64

	for _, trade := range trades {
		if trade.Status != types.TradeStatusClosed {
			continue
		}

		samples = append(samples, trade.PnLPercent)
	}

	if len(samples) == 0 {
		return Result{}
	}

	return s.run(samples, s.cfg.TradesPerSimulation)
}

// RunReturnResampling draws per-bar returns with replacement from the
// realized return series. With no returns it returns a zero-filled Result.
func (s *Simulator) RunReturnResampling(returns []float64) Result {
	if len(returns) == 0 {
		return Result{}
	}

	return s.run(returns, s.cfg.PeriodsPerSimulation)
}

func (s *Simulator) run(samples []float64, steps int) Result {
	outcomes := make([]Outcome, s.cfg.Simulations)

	workers := runtime.NumCPU()
	if workers > s.cfg.Simulations {
		workers = s.cfg.Simulations
	}

	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for path := range jobs {
				rng := rand.New(rand.NewSource(s.cfg.Seed + int64(path)))
				outcomes[path] = s.simulatePath(rng, samples, steps)
			}
		}()
	}

	for path := 0; path < s.cfg.Simulations; path++ {
		jobs <- path
	}

	close(jobs)
	wg.Wait()

	return s.aggregate(outcomes)
}

// simulatePath compounds randomly drawn returns against a running equity,
// tracking peak and drawdown. Equity reaching zero or below pins to zero and
// stops the path early.
func (s *Simulator) simulatePath(rng *rand.Rand, samples []float64, steps int) Outcome {
	equity := s.cfg.InitialCapital
	peak := equity

	var maxDD float64

	pathReturns := make([]float64, 0, steps)

	for step := 0; step < steps; step++ {
		r := samples[rng.Intn(len(samples))]
		pathReturns = append(pathReturns, r)

		equity *= 1 + r

		if equity <= 0 {
			equity = 0

			break
		}

		if equity > peak {
			peak = equity
		}

		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	if equity == 0 {
		maxDD = 1
	}

	return Outcome{
		FinalEquity: equity,
		TotalReturn: (equity - s.cfg.InitialCapital) / s.cfg.InitialCapital,
		MaxDrawdown: maxDD,
		SharpeRatio: s.sharpe(pathReturns),
	}
}

func (s *Simulator) sharpe(returns []float64) float64 {
	vol := stdDev(returns) * math.Sqrt(tradingDaysPerYear)
	if vol == 0 {
		return 0
	}

	return (mean(returns)*tradingDaysPerYear - s.cfg.RiskFreeRate) / vol
}

// aggregate sorts outcomes ascending by final equity and extracts percentile
// cuts and outcome probabilities.
func (s *Simulator) aggregate(outcomes []Outcome) Result {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].FinalEquity < outcomes[j].FinalEquity
	})

	result := Result{
		Outcomes: outcomes,
		P5:       percentile(outcomes, 0.05),
		P25:      percentile(outcomes, 0.25),
		P50:      percentile(outcomes, 0.50),
		P75:      percentile(outcomes, 0.75),
		P95:      percentile(outcomes, 0.95),
	}

	var profit, loss, doubling, ruin int

	for _, outcome := range outcomes {
		switch {
		case outcome.FinalEquity > s.cfg.InitialCapital:
			profit++
		case outcome.FinalEquity < s.cfg.InitialCapital:
			loss++
		}

		if outcome.FinalEquity >= 2*s.cfg.InitialCapital {
			doubling++
		}

		if outcome.FinalEquity <= 0.1*s.cfg.InitialCapital {
			ruin++
		}
	}

	n := float64(len(outcomes))
	result.ProbProfit = float64(profit) / n
	result.ProbLoss = float64(loss) / n
	result.ProbDoubling = float64(doubling) / n
	result.ProbRuin = float64(ruin) / n

	return result
}

// percentile takes outcomes already sorted ascending by final equity.
func percentile(outcomes []Outcome, q float64) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	index := int(float64(len(outcomes)) * q)
	if index >= len(outcomes) {
		index = len(outcomes) - 1
	}

	return outcomes[index].FinalEquity
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
