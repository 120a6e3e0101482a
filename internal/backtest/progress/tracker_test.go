package progress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TrackerTestSuite struct {
	suite.Suite
	dir     string
	now     time.Time
	start   time.Time
	tracker *Tracker
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}

func (s *TrackerTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.now = time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	s.start = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	s.tracker = s.newTracker()
}

// newTracker simulates a fresh process over the same state directory.
func (s *TrackerTestSuite) newTracker() *Tracker {
	return NewTrackerWithClock(NewFileStore(s.dir), s.start, func() time.Time { return s.now }, logger.NewNop())
}

func (s *TrackerTestSuite) stats(r DateRange) types.SessionStats {
	return types.SessionStats{
		Symbol:    "NIFTY",
		Strategy:  "SMA_Crossover",
		StartDate: r.Start,
		EndDate:   r.End,
		Trades:    2,
		PnL:       decimal.NewFromInt(150),
	}
}

func (s *TrackerTestSuite) TestFirstRangeStartsAtGlobalStart() {
	r, err := s.tracker.GetNextDateRange(context.Background(), "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)

	s.True(r.Start.Equal(s.start))
	s.True(r.End.Equal(s.start.AddDate(0, 0, 120)))
	s.False(r.Exhausted)
}

func (s *TrackerTestSuite) TestMonthIsThirtyDays() {
	r, err := s.tracker.GetNextDateRange(context.Background(), "NIFTY", "SMA_Crossover", 1)
	s.Require().NoError(err)

	s.Equal(time.Date(2010, 1, 31, 0, 0, 0, 0, time.UTC), r.End)
}

func (s *TrackerTestSuite) TestRangesAdvanceWithoutOverlap() {
	ctx := context.Background()

	first, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", first.End, s.stats(first)))

	second, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)

	s.True(second.Start.Equal(first.End.AddDate(0, 0, 1)))
	s.True(second.Start.After(first.End))
	s.True(second.End.After(second.Start))
}

func (s *TrackerTestSuite) TestResumesAfterRestart() {
	ctx := context.Background()

	first, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", first.End, s.stats(first)))

	// The in-flight session is lost: its range was handed out but never completed.
	inflight, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)

	restarted := s.newTracker()

	resumed, err := restarted.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.True(inflight.Start.Equal(resumed.Start))
	s.True(inflight.End.Equal(resumed.End))
	s.True(resumed.Start.Equal(first.End.AddDate(0, 0, 1)))

	sessions, err := restarted.Sessions(ctx, "NIFTY", "SMA_Crossover")
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(2, sessions[0].Stats.Trades)
	s.True(sessions[0].Stats.PnL.Equal(decimal.NewFromInt(150)))
	s.True(sessions[0].CompletedAt.Equal(s.now))
}

func (s *TrackerTestSuite) TestEndIsClampedAndPairExhausts() {
	ctx := context.Background()
	s.now = s.start.AddDate(0, 0, 45)

	r, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.True(r.End.Equal(s.now))
	s.False(r.Exhausted)

	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", r.End, s.stats(r)))

	exhausted, err := s.tracker.IsExhausted(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.True(exhausted)

	// Time passing makes the pair schedulable again.
	s.now = s.now.AddDate(0, 0, 3)

	exhausted, err = s.tracker.IsExhausted(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.False(exhausted)
}

func (s *TrackerTestSuite) TestReset() {
	ctx := context.Background()

	r, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", r.End, s.stats(r)))

	s.Require().NoError(s.tracker.Reset(ctx, "NIFTY", "SMA_Crossover"))

	again, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.True(again.Start.Equal(s.start))

	// Resetting a pair with no state is fine.
	s.NoError(s.tracker.Reset(ctx, "BANKNIFTY", "SMA_Crossover"))
}

func (s *TrackerTestSuite) TestPairsAreIndependent() {
	ctx := context.Background()

	r, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", r.End, s.stats(r)))

	other, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "5EMA_PowerOfStocks", 4)
	s.Require().NoError(err)
	s.True(other.Start.Equal(s.start))
}

func (s *TrackerTestSuite) TestRejectsRegression() {
	ctx := context.Background()

	r, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", r.End, s.stats(r)))

	err = s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", r.End.AddDate(0, 0, -1), s.stats(r))
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	status, err := s.tracker.Status(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Equal(1, status.Sessions)
	s.True(status.LastEndDate.Equal(r.End))
}

func (s *TrackerTestSuite) TestInvalidDuration() {
	_, err := s.tracker.GetNextDateRange(context.Background(), "NIFTY", "SMA_Crossover", 0)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *TrackerTestSuite) TestCorruptedRecord() {
	path := filepath.Join(s.dir, "NIFTY_SMA_Crossover.json")
	s.Require().NoError(os.WriteFile(path, []byte("{\"symbol\": "), 0644))

	_, err := s.tracker.GetNextDateRange(context.Background(), "NIFTY", "SMA_Crossover", 4)
	s.True(errors.HasCode(err, errors.ErrCodeProgressCorrupted))
}

func (s *TrackerTestSuite) TestFileStoreLeavesNoTempFiles() {
	ctx := context.Background()

	r, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", r.End, s.stats(r)))

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("NIFTY_SMA_Crossover.json", entries[0].Name())
}

func (s *TrackerTestSuite) TestKeysDoNotCollide() {
	pairs := [][2]string{
		{"X_SMA", "Crossover"},
		{"X", "SMA_Crossover"},
		{"A/B", "SMA"},
		{"A_B", "SMA"},
		{"A:B", "SMA"},
		{"A%3AB", "SMA"},
		{"NIFTY", "S/1"},
		{"NIFTY", "S_1"},
	}

	seen := make(map[string][2]string, len(pairs))
	for _, pair := range pairs {
		k := key(pair[0], pair[1])
		s.NotContains(k, "/", "key %q", k)

		other, dup := seen[k]
		s.False(dup, "%v and %v share key %q", pair, other, k)
		seen[k] = pair
	}

	s.Equal("NIFTY_SMA_Crossover", key("NIFTY", "SMA_Crossover"))
}

func (s *TrackerTestSuite) TestOverlappingNamesKeepSeparateProgress() {
	ctx := context.Background()

	r, err := s.tracker.GetNextDateRange(ctx, "X_SMA", "Crossover", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "X_SMA", "Crossover", r.End, s.stats(r)))

	sessions, err := s.tracker.Sessions(ctx, "X", "SMA_Crossover")
	s.Require().NoError(err)
	s.Empty(sessions)
}

func (s *TrackerTestSuite) TestClampedEndResumesAtNextMidnight() {
	ctx := context.Background()
	s.now = s.start.AddDate(0, 0, 45).Add(14 * time.Hour)

	r, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.True(r.End.Equal(s.now))
	s.Require().NoError(s.tracker.MarkSessionComplete(ctx, "NIFTY", "SMA_Crossover", r.End, s.stats(r)))

	s.now = s.now.AddDate(0, 0, 2)

	next, err := s.tracker.GetNextDateRange(ctx, "NIFTY", "SMA_Crossover", 4)
	s.Require().NoError(err)
	s.True(next.Start.Equal(s.start.AddDate(0, 0, 46)), "start %s", next.Start)
	s.False(next.Exhausted)
}
