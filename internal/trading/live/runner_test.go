package live

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/position"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
)

func (s *CycleTestSuite) startRunner(now time.Time) (*Runner, context.CancelFunc, chan error) {
	runner := NewRunnerWithClock(s.cycle, s.store, func() time.Time { return now }, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- runner.Run(ctx)
	}()

	return runner, cancel, done
}

func (s *CycleTestSuite) TestRunnerIdlesOutsideWindow() {
	saturday := time.Date(2024, 1, 6, 10, 0, 0, 0, marketHours.Location())
	runner, cancel, done := s.startRunner(saturday)

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()

	result, err := runner.RequestCloseAll(ctx)
	s.Require().NoError(err)
	s.Empty(result.Closed)

	cancel()
	s.Require().NoError(<-done)
	s.Equal(int64(0), s.cycle.Ticks())
}

func (s *CycleTestSuite) TestRunnerTicksAndAppliesSettings() {
	s.broker.EXPECT().GetLTP(gomock.Any(), "NIFTY", "NSE").Return(decimal.NewFromInt(100), nil).AnyTimes()
	s.expectBars("NIFTY")

	s.Require().NoError(s.store.Submit(config.UpdateRequest{Key: "max_trades", Value: 3}))

	_, cancel, done := s.startRunner(marketHours)

	s.Eventually(func() bool { return s.cycle.Ticks() >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	s.Require().NoError(<-done)

	s.Equal(3, s.store.Get().MaxTrades)

	prices, err := s.cache.Prices(context.Background(), []string{"NIFTY"})
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(prices["NIFTY"]))
}

func (s *CycleTestSuite) TestRequestCloseAllHonorsContext() {
	runner := NewRunner(s.cycle, s.store, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.RequestCloseAll(ctx)
	s.Error(err)
}

func (s *CycleTestSuite) TestRunnerRefreshesPricesEveryTick() {
	cfg := s.settings()
	cfg.Realtime.ScanInterval = 5 * time.Millisecond
	s.newCycle(cfg)

	_, err := s.cycle.book.Open(position.OpenRequest{
		Symbol:     "NIFTY",
		Strategy:   mockStrategy,
		Side:       types.SideBuy,
		Quantity:   10,
		EntryPrice: decimal.NewFromInt(100),
		StopLoss:   optional.Some(decimal.NewFromInt(95)),
		Target:     optional.Some(decimal.NewFromInt(110)),
	})
	s.Require().NoError(err)

	var calls atomic.Int64
	s.broker.EXPECT().GetLTP(gomock.Any(), "NIFTY", "NSE").DoAndReturn(
		func(_ context.Context, _ string, _ string) (decimal.Decimal, error) {
			if calls.Add(1) == 1 {
				return decimal.NewFromInt(100), nil
			}

			return decimal.NewFromInt(90), nil
		}).AnyTimes()
	s.expectBars("NIFTY")
	s.expectOrders()

	_, cancel, done := s.startRunner(marketHours)

	s.Eventually(func() bool { return s.cycle.Ticks() >= 2 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	s.Require().NoError(<-done)

	s.Require().Len(s.events, 1)
	s.Equal(types.RemarkStopLoss, s.events[0].Remarks)
	s.True(decimal.NewFromInt(90).Equal(s.events[0].Price))
	s.True(decimal.NewFromInt(-100).Equal(s.events[0].PnL))
}
