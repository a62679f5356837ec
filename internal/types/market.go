package types

import "time"

// Bar is a single OHLCV observation for a symbol at a point in time.
// Bars are immutable once produced by a data provider and ordered by time.
type Bar struct {
	Symbol string    `csv:"symbol" yaml:"symbol" json:"symbol"`
	Time   time.Time `csv:"time" yaml:"time" json:"time"`
	Open   float64   `csv:"open" yaml:"open" json:"open"`
	High   float64   `csv:"high" yaml:"high" json:"high"`
	Low    float64   `csv:"low" yaml:"low" json:"low"`
	Close  float64   `csv:"close" yaml:"close" json:"close"`
	Volume float64   `csv:"volume" yaml:"volume" json:"volume"`
}
