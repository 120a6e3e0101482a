package progress

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// DaysPerMonth is the length of a session month. Ranges are advanced by
// months*30 days, not by calendar months, so replays stay reproducible.
const DaysPerMonth = 30

// DateRange is the inclusive window of the next session. Exhausted is set
// when Start is not before the clock reading used to compute the range.
type DateRange struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Exhausted bool      `json:"exhausted"`
}

// Status summarizes the progress of one pair.
type Status struct {
	Symbol      string     `json:"symbol"`
	Strategy    string     `json:"strategy"`
	LastEndDate *time.Time `json:"last_end_date"`
	Sessions    int        `json:"sessions"`
	Next        DateRange  `json:"next"`
}

// Tracker hands out non-overlapping session ranges per (symbol, strategy)
// and records completed sessions. Nothing is cached: every call reads the
// store, so a restarted process resumes from the last durable write.
type Tracker struct {
	store     Store
	startDate time.Time
	now       func() time.Time
	logger    *logger.Logger
	// mu serializes read-modify-write cycles against the store.
	mu sync.Mutex
}

// NewTracker creates a Tracker. Pairs without progress start at startDate.
func NewTracker(store Store, startDate time.Time, logger *logger.Logger) *Tracker {
	return NewTrackerWithClock(store, startDate, time.Now, logger)
}

// NewTrackerWithClock is NewTracker with an injected clock.
func NewTrackerWithClock(store Store, startDate time.Time, now func() time.Time, logger *logger.Logger) *Tracker {
	return &Tracker{
		store:     store,
		startDate: startDate,
		now:       now,
		logger:    logger,
		mu:        sync.Mutex{},
	}
}

// GetNextDateRange returns the window after the last completed session:
// start is midnight of the day after last_end_date (or the global start
// date) and end is start + months*DaysPerMonth days, clamped to now. A
// session covers whole days, so an end clamped mid-day still resumes at the
// next midnight.
func (t *Tracker) GetNextDateRange(ctx context.Context, symbol string, strategy string, months int) (DateRange, error) {
	if months <= 0 {
		return DateRange{}, errors.Newf(errors.ErrCodeInvalidParameter, "session duration must be positive, got %d months", months)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.load(ctx, symbol, strategy)
	if err != nil {
		return DateRange{}, err
	}

	return t.nextRange(record, months), nil
}

func (t *Tracker) nextRange(record Record, months int) DateRange {
	now := t.now()

	start := t.startDate
	if last := record.LastEnd(); last.IsSome() {
		start = startOfDay(last.Unwrap().AddDate(0, 0, 1))
	}

	end := start.AddDate(0, 0, months*DaysPerMonth)
	if end.After(now) {
		end = now
	}

	return DateRange{
		Start:     start,
		End:       end,
		Exhausted: !start.Before(now),
	}
}

// MarkSessionComplete appends a session ending at end and moves the cursor.
// It is the only write of a session and must run after every trade effect of
// that session has been recorded.
func (t *Tracker) MarkSessionComplete(ctx context.Context, symbol string, strategy string, end time.Time, stats types.SessionStats) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.load(ctx, symbol, strategy)
	if err != nil {
		return err
	}

	if last := record.LastEnd(); last.IsSome() && end.Before(last.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"session end %s precedes recorded end %s for %s/%s",
			end.Format(time.DateOnly), last.Unwrap().Format(time.DateOnly), symbol, strategy)
	}

	record = record.append(SessionRecord{
		EndDate:     end,
		CompletedAt: t.now(),
		Stats:       stats,
	})

	if err := t.store.Save(ctx, record); err != nil {
		return err
	}

	t.logger.Info("Backtest session recorded",
		zap.String("symbol", symbol),
		zap.String("strategy", strategy),
		zap.Time("end_date", end),
		zap.Int("sessions", len(record.CompletedSessions)))

	return nil
}

// Reset forgets the pair; its next range starts at the global start date.
func (t *Tracker) Reset(ctx context.Context, symbol string, strategy string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Delete(ctx, symbol, strategy); err != nil {
		return err
	}

	t.logger.Info("Backtest progress reset",
		zap.String("symbol", symbol),
		zap.String("strategy", strategy))

	return nil
}

// IsExhausted reports whether the pair has no history left to replay.
// It is recomputed from the clock, so a paused pair resumes once time passes.
func (t *Tracker) IsExhausted(ctx context.Context, symbol string, strategy string, months int) (bool, error) {
	next, err := t.GetNextDateRange(ctx, symbol, strategy, months)
	if err != nil {
		return false, err
	}

	return next.Exhausted, nil
}

// Status reports the last end date, session count and next range of a pair.
func (t *Tracker) Status(ctx context.Context, symbol string, strategy string, months int) (Status, error) {
	if months <= 0 {
		return Status{}, errors.Newf(errors.ErrCodeInvalidParameter, "session duration must be positive, got %d months", months)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.load(ctx, symbol, strategy)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Symbol:      symbol,
		Strategy:    strategy,
		LastEndDate: record.LastEndDate,
		Sessions:    len(record.CompletedSessions),
		Next:        t.nextRange(record, months),
	}, nil
}

// Sessions returns the completed sessions of a pair, oldest first.
func (t *Tracker) Sessions(ctx context.Context, symbol string, strategy string) ([]SessionRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.load(ctx, symbol, strategy)
	if err != nil {
		return nil, err
	}

	return record.CompletedSessions, nil
}

func (t *Tracker) load(ctx context.Context, symbol string, strategy string) (Record, error) {
	stored, err := t.store.Load(ctx, symbol, strategy)
	if err != nil {
		return Record{}, err
	}

	if stored.IsNone() {
		return newRecord(symbol, strategy), nil
	}

	return stored.Unwrap(), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
