package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestDurationOpenTrade() {
	trade := Trade{
		Symbol:    "AAPL",
		Side:      TradeSideLong,
		EntryTime: time.Date(2023, 1, 1, 9, 30, 0, 0, time.UTC),
		Status:    TradeStatusOpen,
	}
	suite.Equal(time.Duration(0), trade.Duration())
}

func (suite *TradeTestSuite) TestDurationClosedTrade() {
	entry := time.Date(2023, 1, 1, 9, 30, 0, 0, time.UTC)
	trade := Trade{
		Symbol:    "AAPL",
		Side:      TradeSideLong,
		EntryTime: entry,
		ExitTime:  optional.Some(entry.Add(26 * time.Hour)),
		Status:    TradeStatusClosed,
	}
	suite.Equal(26*time.Hour, trade.Duration())
}

func (suite *TradeTestSuite) TestPositionMarketValue() {
	position := Position{
		Symbol:        "AAPL",
		Side:          TradeSideLong,
		Quantity:      10,
		AvgEntryPrice: 100,
		CurrentPrice:  105,
	}
	suite.InDelta(1050.0, position.MarketValue(), 1e-9)
}
