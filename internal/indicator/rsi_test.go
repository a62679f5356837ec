package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RSITestSuite struct {
	suite.Suite
}

func TestRSISuite(t *testing.T) {
	suite.Run(t, new(RSITestSuite))
}

func (suite *RSITestSuite) TestRSIMonotonicallyIncreasing() {
	// 20 strictly increasing closes: average loss is zero, the guard must
	// return exactly 100, not NaN.
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	out := RSI(prices, 14)

	last := out[len(out)-1]
	suite.False(math.IsNaN(last))
	suite.Equal(100.0, last)
}

func (suite *RSITestSuite) TestRSIWarmupNaNs() {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	period := 5

	out := RSI(prices, period)

	for i := 0; i < period; i++ {
		suite.True(math.IsNaN(out[i]), "index %d should be NaN", i)
	}

	suite.False(math.IsNaN(out[period]))
}

func (suite *RSITestSuite) TestRSIMixedSeriesBounded() {
	prices := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.1, 45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28}

	out := RSI(prices, 14)

	last := out[len(out)-1]
	suite.False(math.IsNaN(last))
	suite.Greater(last, 0.0)
	suite.Less(last, 100.0)
}

func (suite *RSITestSuite) TestRSITooFewBars() {
	out := RSI([]float64{1, 2, 3}, 14)
	for _, v := range out {
		suite.True(math.IsNaN(v))
	}
}
