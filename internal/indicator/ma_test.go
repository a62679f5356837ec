package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MATestSuite struct {
	suite.Suite
}

func TestMASuite(t *testing.T) {
	suite.Run(t, new(MATestSuite))
}

func (suite *MATestSuite) TestSMAWarmupNaNs() {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	period := 5

	out := SMA(prices, period)
	suite.Len(out, len(prices))

	for i := 0; i < period-1; i++ {
		suite.True(math.IsNaN(out[i]), "index %d should be NaN", i)
	}

	for i := period - 1; i < len(prices); i++ {
		suite.False(math.IsNaN(out[i]), "index %d should be valid", i)
	}
}

func (suite *MATestSuite) TestSMAEqualsWindowMean() {
	prices := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19}
	period := 4

	out := SMA(prices, period)

	for i := period - 1; i < len(prices); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += prices[j]
		}

		suite.InDelta(sum/float64(period), out[i], 1e-9, "index %d", i)
	}
}

func (suite *MATestSuite) TestSMAInvalidPeriod() {
	suite.Nil(SMA([]float64{1, 2, 3}, 0))
	suite.Nil(SMA([]float64{1, 2, 3}, -1))
}

func (suite *MATestSuite) TestEMASeededWithSMA() {
	prices := []float64{2, 4, 6, 8, 10}
	out := EMA(prices, 4)

	suite.True(math.IsNaN(out[0]))
	suite.True(math.IsNaN(out[2]))
	// Seed at index 3 is the SMA of the first four points
	suite.InDelta(5.0, out[3], 1e-9)
	// Next value uses k = 2/(4+1) = 0.4
	suite.InDelta((10.0-5.0)*0.4+5.0, out[4], 1e-9)
}

func (suite *MATestSuite) TestEMAShorterThanPeriod() {
	out := EMA([]float64{1, 2}, 5)
	suite.Len(out, 2)
	suite.True(math.IsNaN(out[0]))
	suite.True(math.IsNaN(out[1]))
}
