package types

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (suite *OrderTestSuite) TestValidateValidSpec() {
	spec := OrderSpec{
		Symbol:   "AAPL",
		Side:     OrderSideBuy,
		Type:     OrderTypeMarket,
		Quantity: 10,
	}
	suite.NoError(spec.Validate())
}

func (suite *OrderTestSuite) TestValidateLimitSpec() {
	spec := OrderSpec{
		Symbol:     "AAPL",
		Side:       OrderSideSell,
		Type:       OrderTypeLimit,
		Quantity:   5,
		LimitPrice: optional.Some(101.5),
	}
	suite.NoError(spec.Validate())
}

func (suite *OrderTestSuite) TestValidateMissingSymbol() {
	spec := OrderSpec{
		Side:     OrderSideBuy,
		Type:     OrderTypeMarket,
		Quantity: 10,
	}
	suite.Error(spec.Validate())
}

func (suite *OrderTestSuite) TestValidateInvalidSide() {
	spec := OrderSpec{
		Symbol:   "AAPL",
		Side:     OrderSide("SHORT"),
		Type:     OrderTypeMarket,
		Quantity: 10,
	}
	suite.Error(spec.Validate())
}

func (suite *OrderTestSuite) TestValidateZeroQuantity() {
	spec := OrderSpec{
		Symbol:   "AAPL",
		Side:     OrderSideBuy,
		Type:     OrderTypeMarket,
		Quantity: 0,
	}
	suite.Error(spec.Validate())
}
