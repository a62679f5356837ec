package types

import "time"

// PortfolioSnapshot is the state of the portfolio at one simulated bar,
// captured after marks are updated and before any orders for that bar are
// placed. That ordering is what drawdown and duration calculations rely on.
type PortfolioSnapshot struct {
	Time           time.Time `yaml:"time" json:"time" csv:"time"`
	Equity         float64   `yaml:"equity" json:"equity" csv:"equity"`
	Cash           float64   `yaml:"cash" json:"cash" csv:"cash"`
	PositionsValue float64   `yaml:"positions_value" json:"positions_value" csv:"positions_value"`
	// Positions is a deep copy of all open positions at this instant.
	Positions []Position `yaml:"positions" json:"positions" csv:"-"`
	// Drawdown is measured against the running high-water mark.
	Drawdown        float64 `yaml:"drawdown" json:"drawdown" csv:"drawdown"`
	DrawdownPercent float64 `yaml:"drawdown_percent" json:"drawdown_percent" csv:"drawdown_percent"`
}
