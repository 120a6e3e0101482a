package journal

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// CSVJournal appends events to a CSV file with the Headers columns.
type CSVJournal struct {
	path string
	mu   sync.Mutex
}

// NewCSVJournal creates the file and its header row when missing.
func NewCSVJournal(path string) (*CSVJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to create journal directory", err)
	}

	j := &CSVJournal{
		path: path,
		mu:   sync.Mutex{},
	}

	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return j, nil
	}

	if err := j.append(Headers); err != nil {
		return nil, err
	}

	return j, nil
}

// Path returns the journal file.
func (j *CSVJournal) Path() string {
	return j.path
}

// Log implements Journal.
func (j *CSVJournal) Log(_ context.Context, event types.TradeEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.append(toRow(event))
}

// Recent implements Journal.
func (j *CSVJournal) Recent(_ context.Context, limit int) ([]types.TradeEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	events, err := j.readAll()
	if err != nil {
		return nil, err
	}

	return tail(events, limit), nil
}

// Stats implements Journal.
func (j *CSVJournal) Stats(_ context.Context) (types.JournalStats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	events, err := j.readAll()
	if err != nil {
		return types.JournalStats{}, err
	}

	return types.NewJournalStats(events), nil
}

// Close implements Journal. Every Log is already on disk.
func (j *CSVJournal) Close() error {
	return nil
}

func (j *CSVJournal) append(row []string) error {
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to open journal", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to write journal row", err)
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to flush journal", err)
	}

	return nil
}

func (j *CSVJournal) readAll() ([]types.TradeEvent, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.TradeEvent{}, nil
		}

		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to open journal", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return []types.TradeEvent{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to read journal header", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	events := []types.TradeEvent{}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalReadFailed, "failed to read journal row", err)
		}

		event, err := fromRow(row, index)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}
