package live

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/position"
	"github.com/rxtech-lab/argo-autotrader/internal/schedule"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the final close-all after the loop stops.
const shutdownTimeout = 30 * time.Second

// idleInterval is how often the loop wakes up outside the trading window.
const idleInterval = time.Minute

// CloseAllReply is the loop's answer to a close-all request.
type CloseAllReply struct {
	Result position.CloseAllResult
	Err    error
}

type closeAllRequest struct {
	reply chan CloseAllReply
}

// SettingsStore is the settings side the runner drives.
type SettingsStore interface {
	SettingsProvider
	ApplyPending() int
}

// Runner schedules a Cycle. It is the only goroutine that mutates the book
// and the price cache; other goroutines reach it through RequestCloseAll.
type Runner struct {
	cycle    *Cycle
	settings SettingsStore
	closeAll chan closeAllRequest
	now      func() time.Time
	logger   *logger.Logger
}

func NewRunner(cycle *Cycle, settings SettingsStore, logger *logger.Logger) *Runner {
	return NewRunnerWithClock(cycle, settings, time.Now, logger)
}

func NewRunnerWithClock(cycle *Cycle, settings SettingsStore, now func() time.Time, logger *logger.Logger) *Runner {
	return &Runner{
		cycle:    cycle,
		settings: settings,
		closeAll: make(chan closeAllRequest),
		now:      now,
		logger:   logger,
	}
}

// RequestCloseAll asks the loop to close every open position and waits for
// the result.
func (r *Runner) RequestCloseAll(ctx context.Context) (position.CloseAllResult, error) {
	req := closeAllRequest{reply: make(chan CloseAllReply, 1)}

	select {
	case r.closeAll <- req:
	case <-ctx.Done():
		return position.CloseAllResult{}, errors.Wrap(errors.ErrCodeUnknown, "close-all request not accepted", ctx.Err())
	}

	select {
	case reply := <-req.reply:
		return reply.Result, reply.Err
	case <-ctx.Done():
		return position.CloseAllResult{}, errors.Wrap(errors.ErrCodeUnknown, "close-all request timed out", ctx.Err())
	}
}

// Run loops until ctx is cancelled. Inside the realtime window every tick
// refreshes prices before checking exits and scanning, once per
// scan_interval. Between ticks prices are also refreshed every
// ltp_update_interval. A tick in progress always completes. On exit every
// open position is closed.
func (r *Runner) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	refresh := time.NewTimer(r.settings.Get().Realtime.LTPUpdateInterval)
	defer refresh.Stop()

	r.logger.Info("Starting realtime loop")

	for {
		select {
		case <-ctx.Done():
			r.shutdown()

			return nil
		case req := <-r.closeAll:
			result, err := r.cycle.CloseAll(ctx)
			req.reply <- CloseAllReply{Result: result, Err: err}
		case <-refresh.C:
			cfg := r.settings.Get()
			if r.inWindow(cfg) {
				r.cycle.RefreshPrices(ctx)
			}

			refresh.Reset(cfg.Realtime.LTPUpdateInterval)
		case <-timer.C:
			if applied := r.settings.ApplyPending(); applied > 0 {
				r.logger.Info("Applied settings updates", zap.Int("count", applied))
			}

			cfg := r.settings.Get()

			window, err := realtimeWindow(cfg)
			if err != nil {
				r.logger.Error("Invalid realtime schedule", zap.Error(err))
				timer.Reset(idleInterval)

				continue
			}

			now := r.now()
			if !window.Contains(now) {
				r.logger.Debug("Outside market hours", zap.Stringer("window", window))
				timer.Reset(min(idleInterval, window.NextOpen(now).Sub(now)))

				continue
			}

			r.cycle.RefreshPrices(ctx)
			r.cycle.Tick(ctx)
			timer.Reset(cfg.Realtime.ScanInterval)
		}
	}
}

func (r *Runner) inWindow(cfg config.Settings) bool {
	window, err := realtimeWindow(cfg)
	if err != nil {
		return false
	}

	return window.Contains(r.now())
}

func (r *Runner) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	r.logger.Info("Stopping realtime loop")

	if _, err := r.cycle.CloseAll(ctx); err != nil {
		r.logger.Error("Failed to close positions on shutdown", zap.Error(err))
	}
}

func realtimeWindow(cfg config.Settings) (schedule.Window, error) {
	loc, err := cfg.Location()
	if err != nil {
		return schedule.Window{}, err
	}

	return schedule.NewWindow(cfg.Realtime.Schedule.Start, cfg.Realtime.Schedule.End, cfg.Realtime.Schedule.WeekdaysOnly, loc)
}

// Stats reads the cycle's book and journal summary.
func (r *Runner) Stats(ctx context.Context) (Stats, error) {
	return r.cycle.Stats(ctx)
}

// Positions returns copies of every position in the cycle's book.
func (r *Runner) Positions() []position.View {
	return r.cycle.Positions()
}
