package journal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/mocks"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// sampleEvents is one round trip that wins, one that loses and one open.
func sampleEvents() []types.TradeEvent {
	at := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	base := types.TradeEvent{
		Timestamp: at,
		Symbol:    "NIFTY",
		Segment:   "NSE_FO",
		Strategy:  "SMA_Crossover",
		OrderType: types.OrderTypeMarket,
		Quantity:  50,
		Broker:    "angelone",
		Mode:      types.ModeBacktest,
		Status:    types.TradeStatusSuccess,
		Capital:   decimal.NewFromInt(100000),
	}

	buy := base
	buy.Action = types.ActionBuy
	buy.Price = decimal.NewFromInt(100)
	buy.Remarks = "SMA bullish crossover: 10/20"

	win := base
	win.Timestamp = at.Add(time.Hour)
	win.Action = types.ActionExit
	win.Price = decimal.NewFromInt(111)
	win.PnL = decimal.NewFromInt(550)
	win.Remarks = "Target hit (BT)"

	sell := base
	sell.Timestamp = at.Add(2 * time.Hour)
	sell.Action = types.ActionSell
	sell.Price = decimal.NewFromInt(110)

	loss := base
	loss.Timestamp = at.Add(3 * time.Hour)
	loss.Action = types.ActionExit
	loss.Price = decimal.NewFromInt(112)
	loss.PnL = decimal.NewFromInt(-100)
	loss.Remarks = "Stop loss hit (BT), with comma"

	open := base
	open.Timestamp = at.Add(4 * time.Hour)
	open.Action = types.ActionBuy
	open.Price = decimal.RequireFromString("105.25")

	return []types.TradeEvent{buy, win, sell, loss, open}
}

type JournalTestSuite struct {
	suite.Suite
	dir string
}

func TestJournalSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func (s *JournalTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

// journals returns every file-backed implementation over a fresh directory.
func (s *JournalTestSuite) journals() map[string]Journal {
	csvJournal, err := NewCSVJournal(filepath.Join(s.dir, "csv", "trades.csv"))
	s.Require().NoError(err)

	sqlJournal, err := OpenSQL(context.Background(), "sqlite3", filepath.Join(s.dir, "journal.db"), "backtest_trades", logger.NewNop())
	s.Require().NoError(err)

	parquetJournal, err := NewParquetJournal(context.Background(), filepath.Join(s.dir, "trades.parquet"), logger.NewNop())
	s.Require().NoError(err)

	return map[string]Journal{
		"csv":     csvJournal,
		"sqlite":  sqlJournal,
		"parquet": parquetJournal,
	}
}

func (s *JournalTestSuite) TestImplementations() {
	for name, j := range s.journals() {
		s.Run(name, func() {
			defer j.Close()

			ctx := context.Background()

			for _, e := range sampleEvents() {
				s.Require().NoError(j.Log(ctx, e))
			}

			stats, err := j.Stats(ctx)
			s.Require().NoError(err)
			s.Equal(5, stats.TotalTrades)
			s.Equal(1, stats.WinningTrades)
			s.Equal(1, stats.LosingTrades)
			s.True(stats.TotalPnL.Equal(decimal.NewFromInt(450)), stats.TotalPnL.String())
			s.True(stats.WinRate.Equal(decimal.NewFromInt(50)))

			recent, err := j.Recent(ctx, 2)
			s.Require().NoError(err)
			s.Require().Len(recent, 2)
			s.Equal(types.ActionExit, recent[0].Action)
			s.Equal("Stop loss hit (BT), with comma", recent[0].Remarks)
			s.True(recent[1].Price.Equal(decimal.RequireFromString("105.25")))
			s.True(recent[1].Timestamp.Equal(sampleEvents()[4].Timestamp))

			all, err := j.Recent(ctx, 100)
			s.Require().NoError(err)
			s.Len(all, 5)

			none, err := j.Recent(ctx, 0)
			s.Require().NoError(err)
			s.Empty(none)
		})
	}
}

func (s *JournalTestSuite) TestRejectsInvalidEvent() {
	for name, j := range s.journals() {
		s.Run(name, func() {
			defer j.Close()

			err := j.Log(context.Background(), types.TradeEvent{Symbol: "NIFTY"})
			s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
		})
	}
}

func (s *JournalTestSuite) TestEmptyStats() {
	for name, j := range s.journals() {
		s.Run(name, func() {
			defer j.Close()

			stats, err := j.Stats(context.Background())
			s.Require().NoError(err)
			s.Equal(0, stats.TotalTrades)
			s.True(stats.WinRate.IsZero())
		})
	}
}

func (s *JournalTestSuite) TestCSVLayout() {
	path := filepath.Join(s.dir, "trades.csv")

	j, err := NewCSVJournal(path)
	s.Require().NoError(err)
	s.Require().NoError(j.Log(context.Background(), sampleEvents()[0]))

	// reopening keeps the existing header and rows
	j, err = NewCSVJournal(path)
	s.Require().NoError(err)
	s.Require().NoError(j.Log(context.Background(), sampleEvents()[1]))

	data, err := os.ReadFile(path)
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	s.Require().Len(lines, 3)
	s.Equal(strings.Join(Headers, ","), lines[0])
	s.Contains(lines[1], ",2024-01-02,09:30:00,NIFTY,NSE_FO,SMA_Crossover,BUY,MARKET,50,100,angelone,backtest,")
}

func (s *JournalTestSuite) TestParquetSurvivesRestart() {
	ctx := context.Background()
	path := filepath.Join(s.dir, "trades.parquet")

	first, err := NewParquetJournal(ctx, path, logger.NewNop())
	s.Require().NoError(err)

	for _, e := range sampleEvents()[:2] {
		s.Require().NoError(first.Log(ctx, e))
	}

	s.Require().NoError(first.Close())
	s.FileExists(path)

	second, err := NewParquetJournal(ctx, path, logger.NewNop())
	s.Require().NoError(err)
	defer second.Close()

	s.Require().NoError(second.Log(ctx, sampleEvents()[2]))

	recent, err := second.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 3)
	s.Equal(types.ActionSell, recent[2].Action)
}

func (s *JournalTestSuite) TestMultiFansOut() {
	ctrl := gomock.NewController(s.T())
	primary := mocks.NewMockJournal(ctrl)
	secondary := mocks.NewMockJournal(ctrl)
	event := sampleEvents()[0]

	multi := NewMulti(primary, secondary)

	s.Run("writes to every journal", func() {
		primary.EXPECT().Log(gomock.Any(), event).Return(nil)
		secondary.EXPECT().Log(gomock.Any(), event).Return(nil)

		s.NoError(multi.Log(context.Background(), event))
	})

	s.Run("keeps writing after a failure", func() {
		primary.EXPECT().Log(gomock.Any(), event).Return(errors.New(errors.ErrCodeJournalWriteFailed, "disk full"))
		secondary.EXPECT().Log(gomock.Any(), event).Return(nil)

		err := multi.Log(context.Background(), event)
		s.True(errors.HasCode(err, errors.ErrCodeJournalWriteFailed))
		s.Contains(err.Error(), "disk full")
	})

	s.Run("reads from the primary", func() {
		primary.EXPECT().Stats(gomock.Any()).Return(types.JournalStats{TotalTrades: 7}, nil)

		stats, err := multi.Stats(context.Background())
		s.Require().NoError(err)
		s.Equal(7, stats.TotalTrades)
	})

	s.Run("closes all", func() {
		primary.EXPECT().Close().Return(nil)
		secondary.EXPECT().Close().Return(nil)

		s.NoError(multi.Close())
	})
}
