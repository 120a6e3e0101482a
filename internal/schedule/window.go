package schedule

import (
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Window is a daily operating window [Start, End] in a fixed timezone.
type Window struct {
	Start        time.Duration
	End          time.Duration
	WeekdaysOnly bool
	Location     *time.Location
}

// NewWindow parses HH:MM bounds. start must be before end.
func NewWindow(start, end string, weekdaysOnly bool, loc *time.Location) (Window, error) {
	from, err := parseClock(start)
	if err != nil {
		return Window{}, err
	}

	to, err := parseClock(end)
	if err != nil {
		return Window{}, err
	}

	if from >= to {
		return Window{}, errors.Newf(errors.ErrCodeInvalidSchedule, "window start %s is not before end %s", start, end)
	}

	if loc == nil {
		loc = time.Local
	}

	return Window{
		Start:        from,
		End:          to,
		WeekdaysOnly: weekdaysOnly,
		Location:     loc,
	}, nil
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidSchedule, err, "invalid time of day %q", value)
	}

	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether now falls inside the window. Both bounds are
// inclusive.
func (w Window) Contains(now time.Time) bool {
	local := now.In(w.Location)
	if w.WeekdaysOnly && isWeekend(local) {
		return false
	}

	offset := local.Sub(midnight(local))

	return offset >= w.Start && offset <= w.End
}

// NextOpen returns the first instant at or after now that is inside the
// window.
func (w Window) NextOpen(now time.Time) time.Time {
	if w.Contains(now) {
		return now
	}

	local := now.In(w.Location)
	day := midnight(local)

	// at most a weekend plus one day away
	for range 8 {
		open := day.Add(w.Start)
		if open.After(local) && !(w.WeekdaysOnly && isWeekend(open)) {
			return open
		}

		day = midnight(day.AddDate(0, 0, 1))
	}

	return day.Add(w.Start)
}

func (w Window) String() string {
	rule := "daily"
	if w.WeekdaysOnly {
		rule = "weekdays"
	}

	return fmt.Sprintf("%s-%s %s %s", clock(w.Start), clock(w.End), rule, w.Location)
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
