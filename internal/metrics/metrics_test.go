package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (s *MetricsTestSuite) TestRecordSession() {
	before := testutil.ToFloat64(BacktestSessions.WithLabelValues(ResultCompleted))

	RecordSession(ResultCompleted, 250*time.Millisecond)

	s.Equal(before+1, testutil.ToFloat64(BacktestSessions.WithLabelValues(ResultCompleted)))
}

func (s *MetricsTestSuite) TestRecordTrade() {
	before := testutil.ToFloat64(Trades.WithLabelValues("paper", "EXIT"))

	RecordTrade(types.ModePaper, types.ActionExit)

	s.Equal(before+1, testutil.ToFloat64(Trades.WithLabelValues("paper", "EXIT")))
}

func (s *MetricsTestSuite) TestUpdateBook() {
	UpdateBook(types.ModeBacktest, 3, decimal.RequireFromString("-125.5"))

	s.Equal(3.0, testutil.ToFloat64(OpenPositions.WithLabelValues("backtest")))
	s.Equal(-125.5, testutil.ToFloat64(RealizedPnL.WithLabelValues("backtest")))
}
