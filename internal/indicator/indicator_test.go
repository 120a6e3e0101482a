package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestSMA() {
	out, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	suite.Require().NoError(err)
	suite.Len(out, 5)
	suite.True(out[0].IsNone())
	suite.True(out[1].IsNone())
	suite.InDelta(2.0, out[2].Unwrap(), 1e-9)
	suite.InDelta(3.0, out[3].Unwrap(), 1e-9)
	suite.InDelta(4.0, out[4].Unwrap(), 1e-9)
}

func (suite *IndicatorTestSuite) TestSMAShortInput() {
	out, err := SMA([]float64{1, 2}, 3)
	suite.Require().NoError(err)
	suite.True(out[1].IsNone())
}

func (suite *IndicatorTestSuite) TestInvalidPeriod() {
	_, err := SMA([]float64{1}, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, err = EMA([]float64{1}, -5)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *IndicatorTestSuite) TestEMARecursion() {
	// alpha = 2/(3+1) = 0.5
	out, err := EMA([]float64{10, 20, 30}, 3)
	suite.Require().NoError(err)
	suite.InDelta(10.0, out[0], 1e-9)
	suite.InDelta(15.0, out[1], 1e-9)
	suite.InDelta(22.5, out[2], 1e-9)

	empty, err := EMA(nil, 5)
	suite.Require().NoError(err)
	suite.Empty(empty)
}

func (suite *IndicatorTestSuite) TestSwingPointsExcludeLastBar() {
	bars := []types.Bar{
		{Low: 9, High: 12},
		{Low: 7, High: 15},
		{Low: 8, High: 11},
		{Low: 1, High: 99},
	}

	low := SwingLow(bars, 3)
	suite.True(low.IsSome())
	suite.Equal(7.0, low.Unwrap())

	high := SwingHigh(bars, 2)
	suite.Equal(15.0, high.Unwrap())

	suite.True(SwingLow(bars, 4).IsNone())
	suite.True(SwingHigh(bars, 0).IsNone())
}
