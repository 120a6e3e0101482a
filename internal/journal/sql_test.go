package journal

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SQLJournalTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
}

func TestSQLJournalSuite(t *testing.T) {
	suite.Run(t, new(SQLJournalTestSuite))
}

func (s *SQLJournalTestSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.db = db
	s.mock = mock
}

func (s *SQLJournalTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *SQLJournalTestSuite) newJournal(dialect Dialect) *SQLJournal {
	s.mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS realtime_trades")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	j, err := NewSQLJournal(context.Background(), s.db, dialect, "realtime_trades", logger.NewNop())
	s.Require().NoError(err)

	return j
}

func (s *SQLJournalTestSuite) TestDialectFor() {
	tests := []struct {
		driver string
		want   Dialect
		err    bool
	}{
		{driver: "sqlite3", want: SQLite},
		{driver: "pgx", want: Postgres},
		{driver: "mysql", err: true},
	}

	for _, tc := range tests {
		s.Run(tc.driver, func() {
			got, err := DialectFor(tc.driver)
			if tc.err {
				s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

				return
			}

			s.Require().NoError(err)
			s.Equal(tc.want.Driver, got.Driver)
		})
	}
}

func (s *SQLJournalTestSuite) TestPostgresPlaceholders() {
	j := s.newJournal(Postgres)
	event := sampleEvents()[1]

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO realtime_trades (traded_at,symbol,segment,strategy,action,order_type,quantity,price,broker,mode,order_id,status,pnl,capital,remarks) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)")).
		WithArgs(event.Timestamp, "NIFTY", "NSE_FO", "SMA_Crossover", "EXIT", "MARKET", 50, 111.0,
			"angelone", "backtest", "", "SUCCESS", 550.0, 100000.0, "Target hit (BT)").
		WillReturnResult(sqlmock.NewResult(1, 1))

	s.NoError(j.Log(context.Background(), event))
}

func (s *SQLJournalTestSuite) TestInsertFailure() {
	j := s.newJournal(SQLite)

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO realtime_trades")).
		WillReturnError(sql.ErrConnDone)

	err := j.Log(context.Background(), sampleEvents()[0])
	s.True(errors.HasCode(err, errors.ErrCodeJournalWriteFailed))
	s.True(errors.Is(err, sql.ErrConnDone))
}

func (s *SQLJournalTestSuite) TestStatsQuery() {
	j := s.newJournal(SQLite)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COALESCE(SUM(pnl), 0)")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "pnl", "exits", "wins"}).AddRow(10, 1250.5, 4, 3))

	stats, err := j.Stats(context.Background())
	s.Require().NoError(err)
	s.Equal(10, stats.TotalTrades)
	s.Equal(3, stats.WinningTrades)
	s.Equal(1, stats.LosingTrades)
	s.Equal("75", stats.WinRate.String())
	s.Equal("1250.5", stats.TotalPnL.String())
}

func (s *SQLJournalTestSuite) TestStatsFailure() {
	j := s.newJournal(SQLite)

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).WillReturnError(sql.ErrConnDone)

	_, err := j.Stats(context.Background())
	s.True(errors.HasCode(err, errors.ErrCodeJournalReadFailed))
}

func (s *SQLJournalTestSuite) TestMigrationFailure() {
	s.mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS realtime_trades")).
		WillReturnError(sql.ErrConnDone)

	_, err := NewSQLJournal(context.Background(), s.db, SQLite, "realtime_trades", logger.NewNop())
	s.True(errors.HasCode(err, errors.ErrCodeJournalWriteFailed))
}
