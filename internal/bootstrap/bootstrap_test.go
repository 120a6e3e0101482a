package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rxtech-lab/argo-autotrader/internal/backtest/progress"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/lock"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/live"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BootstrapTestSuite struct {
	suite.Suite
	dir string
	cfg config.Settings
}

func TestBootstrapSuite(t *testing.T) {
	suite.Run(t, new(BootstrapTestSuite))
}

func (s *BootstrapTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.cfg = config.Default()
	s.cfg.Paths.BacktestState = filepath.Join(s.dir, "state")
	s.cfg.Paths.TradesBacktest = filepath.Join(s.dir, "trades", "backtest_trades.csv")
	s.cfg.Paths.TradesRealtime = filepath.Join(s.dir, "trades", "realtime_trades.csv")
}

func (s *BootstrapTestSuite) TestWithoutRedis() {
	rdb, err := Redis(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.Nil(rdb)

	s.IsType(&progress.FileStore{}, ProgressStore(s.cfg, rdb))
	s.IsType(&lock.Local{}, Locker(rdb))
	s.IsType(&live.MemoryCache{}, PriceCache(rdb))
}

func (s *BootstrapTestSuite) TestWithRedis() {
	server := miniredis.RunT(s.T())
	s.cfg.Redis.Addr = server.Addr()

	rdb, err := Redis(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.Require().NotNil(rdb)
	defer rdb.Close()

	s.IsType(&progress.RedisStore{}, ProgressStore(s.cfg, rdb))
	s.IsType(&lock.Redis{}, Locker(rdb))
	s.IsType(&live.RedisCache{}, PriceCache(rdb))
}

func (s *BootstrapTestSuite) TestRedisUnreachable() {
	s.cfg.Redis.Addr = "127.0.0.1:1"

	_, err := Redis(context.Background(), s.cfg)
	s.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}

func (s *BootstrapTestSuite) TestTrackerStartsAtConfiguredDate() {
	tracker, err := Tracker(s.cfg, ProgressStore(s.cfg, nil), logger.NewNop())
	s.Require().NoError(err)

	next, err := tracker.GetNextDateRange(context.Background(), "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Equal("2010-01-01", next.Start.Format(time.DateOnly))
}

func (s *BootstrapTestSuite) TestCSVJournalOnly() {
	j, err := Journal(context.Background(), s.cfg, BotRealtime, logger.NewNop())
	s.Require().NoError(err)
	defer j.Close()

	s.IsType(&journal.CSVJournal{}, j)
	s.FileExists(s.cfg.Paths.TradesRealtime)
}

func (s *BootstrapTestSuite) TestFanOutJournal() {
	s.cfg.Journal.SQLDriver = "sqlite3"
	s.cfg.Journal.SQLDSN = filepath.Join(s.dir, "trades.db")

	ctx := context.Background()

	j, err := Journal(ctx, s.cfg, BotBacktest, logger.NewNop())
	s.Require().NoError(err)
	defer j.Close()

	s.IsType(&journal.Multi{}, j)

	s.Require().NoError(j.Log(ctx, types.TradeEvent{
		Timestamp: time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
		Symbol:    "NIFTY",
		Strategy:  "SMA_Crossover",
		Action:    types.ActionBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  50,
		Price:     decimal.NewFromInt(100),
		Mode:      types.ModeBacktest,
		Status:    types.TradeStatusSuccess,
	}))

	recent, err := j.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Len(recent, 1)
}

func (s *BootstrapTestSuite) TestParquetPath() {
	s.Equal("trades/journal_backtest.parquet", ParquetPath("trades/journal.parquet", BotBacktest))
	s.Equal("trades/journal_realtime.parquet", ParquetPath("trades/journal", BotRealtime))
}
