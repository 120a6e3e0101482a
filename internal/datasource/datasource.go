package datasource

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// HistoricalSource loads stored candles for one instrument.
type HistoricalSource interface {
	// GetRange returns the bars with start <= time <= end, oldest first.
	// It returns an ErrCodeNoDataFound error when nothing is stored for the range.
	GetRange(ctx context.Context, segment string, symbol string, start time.Time, end time.Time) ([]types.Bar, error)
	// Save writes bars as the stored history for the instrument, replacing any previous file.
	Save(ctx context.Context, segment string, symbol string, bars []types.Bar) error
	Close() error
}

// FileName is the CSV file holding the history of one instrument:
// "{segment}_{symbol}.csv" with slashes replaced by underscores.
func FileName(segment string, symbol string) string {
	return strings.ReplaceAll(segment+"_"+symbol, "/", "_") + ".csv"
}

// FilePath joins the data directory and FileName.
func FilePath(dir string, segment string, symbol string) string {
	return filepath.Join(dir, FileName(segment, symbol))
}
