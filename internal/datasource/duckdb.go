package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

var barColumns = []string{`"timestamp"`, "open", "high", "low", "close", "volume"}

// DuckDBSource reads per-instrument CSV files through an in-memory DuckDB
// connection. The files are queried in place with read_csv_auto.
type DuckDBSource struct {
	db     *sql.DB
	dir    string
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	// mu serializes Save, which uses a connection-scoped temp table.
	mu sync.Mutex
}

// NewDuckDBSource creates a source over the CSV files in dir.
func NewDuckDBSource(dir string, logger *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBSource{
		db:     db,
		dir:    dir,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		mu:     sync.Mutex{},
	}, nil
}

// GetRange implements HistoricalSource.
func (d *DuckDBSource) GetRange(ctx context.Context, segment string, symbol string, start time.Time, end time.Time) ([]types.Bar, error) {
	path := FilePath(d.dir, segment, symbol)

	if _, err := os.Stat(path); err != nil {
		d.logger.Warn("No historical data file",
			zap.String("symbol", symbol),
			zap.String("path", path))

		return nil, errors.Wrapf(errors.ErrCodeNoDataFound, err, "no historical data for %s", symbol)
	}

	query, args, err := d.sq.
		Select(barColumns...).
		From(fmt.Sprintf("read_csv_auto('%s', header = true)", quote(path))).
		Where(squirrel.And{
			squirrel.GtOrEq{`"timestamp"`: start},
			squirrel.LtOrEq{`"timestamp"`: end},
		}).
		OrderBy(`"timestamp" ASC`).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query %s", path)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		bar := types.Bar{Symbol: symbol}

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read bars", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound, "no bars for %s between %s and %s",
			symbol, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	d.logger.Debug("Loaded historical bars",
		zap.String("symbol", symbol),
		zap.Int("count", len(bars)),
		zap.Time("start", start),
		zap.Time("end", end))

	return bars, nil
}

// Save implements HistoricalSource. The CSV is written next to its final
// path and renamed into place.
func (d *DuckDBSource) Save(ctx context.Context, segment string, symbol string, bars []types.Bar) error {
	if len(bars) == 0 {
		return errors.Newf(errors.ErrCodeInsufficientData, "no bars to save for %s", symbol)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to create data directory", err)
	}

	conn, err := d.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to get connection", err)
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `
		CREATE OR REPLACE TEMP TABLE bars_export (
			"timestamp" TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create export table", err)
	}

	insert := d.sq.Insert("bars_export").Columns(barColumns...)
	for _, bar := range bars {
		insert = insert.Values(bar.Time.UTC(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build insert", err)
	}

	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert bars", err)
	}

	path := FilePath(d.dir, segment, symbol)
	tmp := filepath.Join(d.dir, "."+filepath.Base(path)+".tmp")

	copyQuery := fmt.Sprintf(`COPY (SELECT * FROM bars_export ORDER BY "timestamp") TO '%s' (HEADER, DELIMITER ',')`, quote(tmp))
	if _, err := conn.ExecContext(ctx, copyQuery); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export bars", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to move bars into place", err)
	}

	d.logger.Info("Saved historical bars",
		zap.String("symbol", symbol),
		zap.String("path", path),
		zap.Int("count", len(bars)))

	return nil
}

// Close implements HistoricalSource.
func (d *DuckDBSource) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}

func quote(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
