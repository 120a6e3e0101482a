package replay

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/schedule"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// SettingsProvider hands out settings snapshots.
type SettingsProvider interface {
	Get() config.Settings
}

// PairFailure records a session that returned an error.
type PairFailure struct {
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
}

// DailyReport summarizes one pass over every active pair.
type DailyReport struct {
	StartedAt     time.Time       `json:"started_at"`
	OutsideWindow bool            `json:"outside_window"`
	Run           int             `json:"run"`
	Exhausted     int             `json:"exhausted"`
	NoData        int             `json:"no_data"`
	Failed        []PairFailure   `json:"failed"`
	Sessions      []SessionResult `json:"sessions"`
}

// PairHook is called after each pair of a daily run.
type PairHook func(result SessionResult, err error)

// Driver runs one session for every active symbol x active strategy.
type Driver struct {
	engine   *Engine
	settings SettingsProvider
	now      func() time.Time
	logger   *logger.Logger
}

func NewDriver(engine *Engine, settings SettingsProvider, logger *logger.Logger) *Driver {
	return NewDriverWithClock(engine, settings, time.Now, logger)
}

func NewDriverWithClock(engine *Engine, settings SettingsProvider, now func() time.Time, logger *logger.Logger) *Driver {
	return &Driver{
		engine:   engine,
		settings: settings,
		now:      now,
		logger:   logger,
	}
}

// Pairs returns how many sessions a daily run would attempt.
func (d *Driver) Pairs() int {
	cfg := d.settings.Get()

	return len(cfg.ActiveSymbols()) * len(cfg.ActiveStrategies)
}

// RunDaily runs every pair once. Outside the backtest window it does nothing
// unless force is set. A failing pair is logged and reported; it never stops
// the rest of the batch. Cancellation is honored between pairs.
func (d *Driver) RunDaily(ctx context.Context, force bool, hook PairHook) (DailyReport, error) {
	cfg := d.settings.Get()
	report := DailyReport{
		StartedAt: d.now(),
		Failed:    make([]PairFailure, 0),
		Sessions:  make([]SessionResult, 0),
	}

	loc, err := cfg.Location()
	if err != nil {
		return report, err
	}

	window, err := schedule.NewWindow(cfg.Backtest.Schedule.Start, cfg.Backtest.Schedule.End, cfg.Backtest.Schedule.WeekdaysOnly, loc)
	if err != nil {
		return report, err
	}

	if !force && !window.Contains(report.StartedAt) {
		d.logger.Info("Outside backtest hours", zap.Stringer("window", window))

		report.OutsideWindow = true

		return report, nil
	}

	symbols := cfg.ActiveSymbols()
	if len(symbols) == 0 || len(cfg.ActiveStrategies) == 0 {
		d.logger.Warn("Nothing to backtest",
			zap.Int("active_symbols", len(symbols)),
			zap.Int("active_strategies", len(cfg.ActiveStrategies)))

		return report, nil
	}

	params := ParamsFromSettings(cfg)

	d.logger.Info("Starting daily backtest",
		zap.Int("symbols", len(symbols)),
		zap.Strings("strategies", cfg.ActiveStrategies))

	for _, info := range symbols {
		for _, name := range cfg.ActiveStrategies {
			if err := ctx.Err(); err != nil {
				return report, errors.Wrap(errors.ErrCodeUnknown, "daily backtest interrupted", err)
			}

			result, err := d.engine.RunSession(ctx, params, info, name)

			switch {
			case err != nil:
				d.logger.Error("Backtest session failed",
					zap.String("symbol", info.Symbol),
					zap.String("strategy", name),
					zap.Error(err))

				report.Failed = append(report.Failed, PairFailure{Symbol: info.Symbol, Strategy: name, Error: err.Error()})
			case result.Status == StatusExhausted:
				report.Exhausted++
			case result.Status == StatusNoData:
				report.NoData++
			default:
				report.Run++
				report.Sessions = append(report.Sessions, result)
			}

			if hook != nil {
				hook(result, err)
			}
		}
	}

	d.logger.Info("Daily backtest complete",
		zap.Int("run", report.Run),
		zap.Int("exhausted", report.Exhausted),
		zap.Int("no_data", report.NoData),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}
