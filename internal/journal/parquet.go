package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

const parquetTable = "trades"

// DuckDB is the dialect of the in-memory table behind ParquetJournal.
var DuckDB = Dialect{
	Driver:      "duckdb",
	Placeholder: squirrel.Dollar,
	IDColumn:    "id BIGINT PRIMARY KEY DEFAULT nextval('trades_id_seq')",
	Timestamp:   "TIMESTAMP",
	Float:       "DOUBLE",
}

// ParquetJournal keeps events in an in-memory DuckDB table and exports the
// whole table to a parquet file after every write. An existing file is
// loaded on open, so the journal survives restarts.
type ParquetJournal struct {
	*SQLJournal
	outputPath string
}

// NewParquetJournal opens the journal backed by outputPath.
func NewParquetJournal(ctx context.Context, outputPath string, logger *logger.Logger) (*ParquetJournal, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to create journal directory", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to open duckdb", err)
	}

	// every statement must see the same in-memory database
	db.SetMaxOpenConns(1)

	j, err := initParquet(ctx, db, outputPath, logger)
	if err != nil {
		db.Close()

		return nil, err
	}

	return j, nil
}

func initParquet(ctx context.Context, db *sql.DB, outputPath string, logger *logger.Logger) (*ParquetJournal, error) {
	existing := false
	if _, err := os.Stat(outputPath); err == nil {
		existing = true
	}

	next := int64(1)

	if existing {
		var maxID int64

		query := fmt.Sprintf("SELECT COALESCE(MAX(id), 0) FROM read_parquet('%s')", quote(outputPath))
		if err := db.QueryRowContext(ctx, query).Scan(&maxID); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to read existing journal", err)
		}

		next = maxID + 1
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS trades_id_seq START %d", next)); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to create id sequence", err)
	}

	inner, err := NewSQLJournal(ctx, db, DuckDB, parquetTable, logger)
	if err != nil {
		return nil, err
	}

	if existing {
		query := fmt.Sprintf("INSERT INTO %s SELECT * FROM read_parquet('%s')", parquetTable, quote(outputPath))
		if _, err := db.ExecContext(ctx, query); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to load existing journal", err)
		}

		logger.Info("Loaded parquet journal", zap.String("path", outputPath), zap.Int64("next_id", next))
	}

	return &ParquetJournal{
		SQLJournal: inner,
		outputPath: outputPath,
	}, nil
}

// Log implements Journal.
func (p *ParquetJournal) Log(ctx context.Context, event types.TradeEvent) error {
	if err := p.SQLJournal.Log(ctx, event); err != nil {
		return err
	}

	return p.Flush(ctx)
}

// Flush exports the table to the parquet file.
func (p *ParquetJournal) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	query := fmt.Sprintf("COPY (SELECT * FROM %s ORDER BY id ASC) TO '%s' (FORMAT PARQUET)", parquetTable, quote(p.outputPath))
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to export parquet journal", err)
	}

	return nil
}

// OutputPath returns the parquet file path.
func (p *ParquetJournal) OutputPath() string {
	return p.outputPath
}

func quote(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
