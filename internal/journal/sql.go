package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dialect captures what differs between the supported SQL backends.
type Dialect struct {
	Driver      string
	Placeholder squirrel.PlaceholderFormat
	// IDColumn is the auto-incrementing primary key definition.
	IDColumn  string
	Timestamp string
	Float     string
}

var (
	SQLite = Dialect{
		Driver:      "sqlite3",
		Placeholder: squirrel.Question,
		IDColumn:    "id INTEGER PRIMARY KEY AUTOINCREMENT",
		Timestamp:   "TIMESTAMP",
		Float:       "REAL",
	}
	Postgres = Dialect{
		Driver:      "pgx",
		Placeholder: squirrel.Dollar,
		IDColumn:    "id BIGSERIAL PRIMARY KEY",
		Timestamp:   "TIMESTAMPTZ",
		Float:       "DOUBLE PRECISION",
	}
)

// DialectFor returns the dialect of a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case SQLite.Driver:
		return SQLite, nil
	case Postgres.Driver:
		return Postgres, nil
	default:
		return Dialect{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported journal driver %q", driver)
	}
}

var eventColumns = []string{
	"traded_at", "symbol", "segment", "strategy", "action", "order_type",
	"quantity", "price", "broker", "mode", "order_id", "status",
	"pnl", "capital", "remarks",
}

// SQLJournal stores events in one table of a SQL database.
type SQLJournal struct {
	db      *sql.DB
	dialect Dialect
	table   string
	sq      squirrel.StatementBuilderType
	logger  *logger.Logger
	mu      sync.Mutex
}

// OpenSQL opens dsn with the dialect's driver and prepares the table.
func OpenSQL(ctx context.Context, driver string, dsn string, table string, logger *logger.Logger) (*SQLJournal, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to open journal database", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to reach journal database", err)
	}

	j, err := NewSQLJournal(ctx, db, dialect, table, logger)
	if err != nil {
		db.Close()

		return nil, err
	}

	return j, nil
}

// NewSQLJournal wraps an open database and creates the table when missing.
func NewSQLJournal(ctx context.Context, db *sql.DB, dialect Dialect, table string, logger *logger.Logger) (*SQLJournal, error) {
	j := &SQLJournal{
		db:      db,
		dialect: dialect,
		table:   table,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		logger:  logger,
		mu:      sync.Mutex{},
	}

	if err := j.migrate(ctx); err != nil {
		return nil, err
	}

	return j, nil
}

func (j *SQLJournal) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s,
		traded_at %s NOT NULL,
		symbol TEXT NOT NULL,
		segment TEXT,
		strategy TEXT NOT NULL,
		action TEXT NOT NULL,
		order_type TEXT,
		quantity INTEGER,
		price %s,
		broker TEXT,
		mode TEXT,
		order_id TEXT,
		status TEXT,
		pnl %s,
		capital %s,
		remarks TEXT
	)`, j.table, j.dialect.IDColumn, j.dialect.Timestamp, j.dialect.Float, j.dialect.Float, j.dialect.Float)

	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrapf(errors.ErrCodeJournalWriteFailed, err, "failed to create table %s", j.table)
	}

	return nil
}

// Log implements Journal.
func (j *SQLJournal) Log(ctx context.Context, event types.TradeEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	query, args, err := j.sq.
		Insert(j.table).
		Columns(eventColumns...).
		Values(
			event.Timestamp,
			event.Symbol,
			event.Segment,
			event.Strategy,
			string(event.Action),
			string(event.OrderType),
			event.Quantity,
			event.Price.InexactFloat64(),
			event.Broker,
			string(event.Mode),
			event.OrderID,
			string(event.Status),
			event.PnL.InexactFloat64(),
			event.Capital.InexactFloat64(),
			event.Remarks,
		).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to build insert", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		j.logger.Error("Failed to journal trade",
			zap.String("symbol", event.Symbol),
			zap.String("action", string(event.Action)),
			zap.Error(err))

		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to insert trade", err)
	}

	return nil
}

// Recent implements Journal.
func (j *SQLJournal) Recent(ctx context.Context, limit int) ([]types.TradeEvent, error) {
	if limit <= 0 {
		return []types.TradeEvent{}, nil
	}

	query, args, err := j.sq.
		Select(eventColumns...).
		From(j.table).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to build query", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to query trades", err)
	}
	defer rows.Close()

	events := []types.TradeEvent{}

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to read trades", err)
	}

	// newest first from the query, oldest first to the caller
	for l, r := 0, len(events)-1; l < r; l, r = l+1, r-1 {
		events[l], events[r] = events[r], events[l]
	}

	return events, nil
}

// Stats implements Journal. Aggregation runs in the database.
func (j *SQLJournal) Stats(ctx context.Context) (types.JournalStats, error) {
	query, args, err := j.sq.
		Select(
			"COUNT(*)",
			"COALESCE(SUM(pnl), 0)",
			"CAST(COALESCE(SUM(CASE WHEN action = 'EXIT' THEN 1 ELSE 0 END), 0) AS BIGINT)",
			"CAST(COALESCE(SUM(CASE WHEN action = 'EXIT' AND pnl > 0 THEN 1 ELSE 0 END), 0) AS BIGINT)",
		).
		From(j.table).
		ToSql()
	if err != nil {
		return types.JournalStats{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to build query", err)
	}

	var (
		total, exits, wins int64
		pnl                float64
	)

	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&total, &pnl, &exits, &wins); err != nil {
		return types.JournalStats{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to aggregate trades", err)
	}

	return types.JournalStatsFromCounts(int(total), int(exits), int(wins), decimal.NewFromFloat(pnl)), nil
}

// Close implements Journal.
func (j *SQLJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (types.TradeEvent, error) {
	var (
		event                                        types.TradeEvent
		at                                           time.Time
		segment, orderType, broker, orderID, remarks sql.NullString
		action, mode, status                         string
		quantity                                     sql.NullInt64
		price, pnl, capital                          sql.NullFloat64
	)

	err := row.Scan(&at, &event.Symbol, &segment, &event.Strategy, &action, &orderType,
		&quantity, &price, &broker, &mode, &orderID, &status, &pnl, &capital, &remarks)
	if err != nil {
		return types.TradeEvent{}, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to scan trade", err)
	}

	event.Timestamp = at
	event.Segment = segment.String
	event.Action = types.Action(action)
	event.OrderType = types.OrderType(orderType.String)
	event.Quantity = int(quantity.Int64)
	event.Price = decimal.NewFromFloat(price.Float64)
	event.Broker = broker.String
	event.Mode = types.Mode(mode)
	event.OrderID = orderID.String
	event.Status = types.TradeStatus(status)
	event.PnL = decimal.NewFromFloat(pnl.Float64)
	event.Capital = decimal.NewFromFloat(capital.Float64)
	event.Remarks = remarks.String

	return event, nil
}
