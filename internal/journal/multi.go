package journal

import (
	"context"
	goerrors "errors"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Multi fans every event out to several journals. Reads are served by the
// primary, the first journal.
type Multi struct {
	journals []Journal
}

// NewMulti requires at least one journal.
func NewMulti(primary Journal, others ...Journal) *Multi {
	return &Multi{
		journals: append([]Journal{primary}, others...),
	}
}

// Log implements Journal. Every journal is attempted even when one fails.
func (m *Multi) Log(ctx context.Context, event types.TradeEvent) error {
	var errs []error

	for _, j := range m.journals {
		if err := j.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "journal fan-out failed", goerrors.Join(errs...))
	}

	return nil
}

// Recent implements Journal.
func (m *Multi) Recent(ctx context.Context, limit int) ([]types.TradeEvent, error) {
	return m.journals[0].Recent(ctx, limit)
}

// Stats implements Journal.
func (m *Multi) Stats(ctx context.Context) (types.JournalStats, error) {
	return m.journals[0].Stats(ctx)
}

// Close implements Journal.
func (m *Multi) Close() error {
	var errs []error

	for _, j := range m.journals {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return goerrors.Join(errs...)
}
