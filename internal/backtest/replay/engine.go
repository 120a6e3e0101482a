package replay

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/backtest/progress"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/datasource"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/lock"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/metrics"
	"github.com/rxtech-lab/argo-autotrader/internal/position"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long one session may hold its pair.
const DefaultLockTTL = 30 * time.Minute

const remarkSuffix = " (BT)"

// minWindow is the smallest prefix handed to a strategy.
const minWindow = 2

// SessionStatus is the outcome of RunSession.
type SessionStatus string

const (
	StatusCompleted SessionStatus = "completed"
	StatusExhausted SessionStatus = "exhausted"
	StatusNoData    SessionStatus = "no_data"
)

// Params are the settings one session runs with.
type Params struct {
	Capital       decimal.Decimal
	RiskPercent   decimal.Decimal
	MaxOpen       int
	SessionMonths int
	Segment       string
	Broker        string
}

// ParamsFromSettings snapshots the session parameters of cfg.
func ParamsFromSettings(cfg config.Settings) Params {
	return Params{
		Capital:       decimal.NewFromFloat(cfg.Capital),
		RiskPercent:   decimal.NewFromFloat(cfg.RiskPerTrade),
		MaxOpen:       cfg.MaxTrades,
		SessionMonths: cfg.Backtest.SessionDurationMonths,
		Segment:       cfg.Segment,
		Broker:        cfg.Broker,
	}
}

// SessionResult describes one replayed session.
type SessionResult struct {
	Symbol   string             `json:"symbol"`
	Strategy string             `json:"strategy"`
	Status   SessionStatus      `json:"status"`
	Range    progress.DateRange `json:"range"`
	Bars     int                `json:"bars"`
	Stats    types.SessionStats `json:"stats"`
	Summary  position.Summary   `json:"summary"`
	Closed   []position.View    `json:"closed"`
}

// Engine replays one (symbol, strategy) session at a time over historical
// bars. Opens and exits are journaled only once the pair's progress has
// been advanced for the whole session.
type Engine struct {
	source   datasource.HistoricalSource
	tracker  *progress.Tracker
	journal  journal.Journal
	locker   lock.Locker
	registry strategy.Registry
	lockTTL  time.Duration
	logger   *logger.Logger
}

// NewEngine wires the collaborators of a replay session.
func NewEngine(
	source datasource.HistoricalSource,
	tracker *progress.Tracker,
	journal journal.Journal,
	locker lock.Locker,
	registry strategy.Registry,
	logger *logger.Logger,
) *Engine {
	return &Engine{
		source:   source,
		tracker:  tracker,
		journal:  journal,
		locker:   locker,
		registry: registry,
		lockTTL:  DefaultLockTTL,
		logger:   logger,
	}
}

// session is the state of one RunSession call.
type session struct {
	params   Params
	info     types.SymbolInfo
	strategy strategy.Strategy
	book     *position.Book
	stats    types.SessionStats
	events   []types.TradeEvent
	logger   *logger.Logger
}

// RunSession replays the next date range of the pair. An exhausted pair or
// a range without bars returns without touching progress.
func (e *Engine) RunSession(ctx context.Context, params Params, info types.SymbolInfo, strategyName string) (SessionResult, error) {
	started := time.Now()
	result := SessionResult{
		Symbol:   info.Symbol,
		Strategy: strategyName,
	}

	strat, err := e.registry.New(strategyName)
	if err != nil {
		metrics.RecordSession(metrics.ResultFailed, time.Since(started))

		return result, err
	}

	release, err := e.locker.Acquire(ctx, lock.PairKey(info.Symbol, strategyName), e.lockTTL)
	if err != nil {
		metrics.RecordSession(metrics.ResultFailed, time.Since(started))

		return result, err
	}
	defer release()

	next, err := e.tracker.GetNextDateRange(ctx, info.Symbol, strategyName, params.SessionMonths)
	if err != nil {
		metrics.RecordSession(metrics.ResultFailed, time.Since(started))

		return result, err
	}

	result.Range = next

	log := e.logger.With(zap.String("symbol", info.Symbol), zap.String("strategy", strategyName))

	if next.Exhausted {
		log.Info("Backtest complete for pair")
		metrics.RecordSession(metrics.ResultExhausted, time.Since(started))

		result.Status = StatusExhausted

		return result, nil
	}

	log.Info("Backtesting",
		zap.String("from", next.Start.Format(time.DateOnly)),
		zap.String("to", next.End.Format(time.DateOnly)))

	bars, err := e.source.GetRange(ctx, params.Segment, info.Symbol, next.Start, endOfDay(next.End))
	if err != nil && !errors.HasCode(err, errors.ErrCodeNoDataFound) {
		metrics.RecordSession(metrics.ResultFailed, time.Since(started))

		return result, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "failed to load bars for %s", info.Symbol)
	}

	if len(bars) == 0 {
		log.Warn("No data available, session not recorded")
		metrics.RecordSession(metrics.ResultNoData, time.Since(started))

		result.Status = StatusNoData

		return result, nil
	}

	s := &session{
		params:   params,
		info:     info,
		strategy: strat,
		book:     position.NewBook(),
		stats: types.SessionStats{
			Symbol:    info.Symbol,
			Strategy:  strategyName,
			StartDate: next.Start,
			EndDate:   next.End,
			Trades:    0,
			PnL:       decimal.Zero,
		},
		events: nil,
		logger: log,
	}

	if err := e.replay(ctx, s, bars); err != nil {
		metrics.RecordSession(metrics.ResultFailed, time.Since(started))

		return result, err
	}

	if err := e.tracker.MarkSessionComplete(ctx, info.Symbol, strategyName, next.End, s.stats); err != nil {
		metrics.RecordSession(metrics.ResultFailed, time.Since(started))

		return result, err
	}

	e.flush(ctx, s)

	last := bars[len(bars)-1]
	summary := s.book.Summary(map[string]decimal.Decimal{info.Symbol: last.ClosePrice()})

	metrics.RecordSession(metrics.ResultCompleted, time.Since(started))
	metrics.UpdateBook(types.ModeBacktest, summary.OpenCount, summary.RealizedPnL)

	log.Info("Session complete",
		zap.Int("bars", len(bars)),
		zap.Int("trades", s.stats.Trades),
		zap.String("pnl", types.FormatPnL(s.stats.PnL)))

	result.Status = StatusCompleted
	result.Bars = len(bars)
	result.Stats = s.stats
	result.Summary = summary
	result.Closed = views(s.book.GetClosed())

	return result, nil
}

// replay walks growing prefixes of bars. Exits are evaluated before entries
// on every bar, and whatever is still open after the last bar is closed at
// its close.
func (e *Engine) replay(ctx context.Context, s *session, bars []types.Bar) error {
	for i := minWindow - 1; i < len(bars); i++ {
		bar := bars[i]
		price := bar.ClosePrice()

		if err := e.checkExits(ctx, s, bar, price); err != nil {
			return err
		}

		if err := e.scan(ctx, s, bars[:i+1]); err != nil {
			return err
		}
	}

	last := bars[len(bars)-1]
	for _, p := range s.book.GetOpen() {
		if err := e.closePosition(ctx, s, p, last, types.RemarkSessionEnd); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) checkExits(ctx context.Context, s *session, bar types.Bar, price decimal.Decimal) error {
	for _, p := range s.book.GetOpen() {
		var remark string

		switch p.CheckExit(price) {
		case position.ExitStopLoss:
			remark = types.RemarkStopLoss
		case position.ExitTarget:
			remark = types.RemarkTarget
		default:
			continue
		}

		if err := e.closePosition(ctx, s, p, bar, remark); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) scan(ctx context.Context, s *session, window []types.Bar) error {
	bar := window[len(window)-1]

	signal, err := s.strategy.GenerateSignal(window, s.info)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed at %s", s.strategy.Name(), bar.Time)
	}

	if signal.IsNone() {
		return nil
	}

	sig := signal.Unwrap()
	if err := sig.Validate(); err != nil {
		s.logger.Warn("Ignoring invalid signal", zap.Time("bar", bar.Time), zap.Error(err))

		return nil
	}

	if sig.Action == types.ActionExit {
		remark := sig.Reason
		if remark == "" {
			remark = types.RemarkExitSignal
		}

		for _, p := range s.book.GetOpen() {
			if p.Strategy() != s.strategy.Name() {
				continue
			}

			if err := e.closePosition(ctx, s, p, bar, remark); err != nil {
				return err
			}
		}

		return nil
	}

	if s.book.OpenCount() >= s.params.MaxOpen {
		return nil
	}

	side, _ := sig.Side()
	stop := risk.StopOrDefault(sig.StopLoss, sig.Price)

	qty := risk.CalculateQuantity(s.params.Capital, s.params.RiskPercent, sig.Price, stop, s.info.LotSize)
	if qty == 0 {
		s.logger.Info("Signal skipped, no lot fits the risk budget",
			zap.Time("bar", bar.Time),
			zap.String("price", sig.Price.String()),
			zap.String("stop_loss", stop.String()))

		return nil
	}

	p, err := s.book.Open(position.OpenRequest{
		Symbol:     s.info.Symbol,
		Strategy:   s.strategy.Name(),
		Side:       side,
		Quantity:   qty,
		EntryPrice: sig.Price,
		StopLoss:   sig.StopLoss,
		Target:     sig.Target,
		At:         bar.Time,
	})
	if err != nil {
		return err
	}

	s.stats.Trades++

	s.record(types.TradeEvent{
		Timestamp: bar.Time,
		Symbol:    p.Symbol(),
		Segment:   s.params.Segment,
		Strategy:  p.Strategy(),
		Action:    sig.Action,
		OrderType: sig.OrderType,
		Quantity:  p.Quantity(),
		Price:     p.EntryPrice(),
		Broker:    s.params.Broker,
		Mode:      types.ModeBacktest,
		Status:    types.TradeStatusSuccess,
		PnL:       decimal.Zero,
		Capital:   s.params.Capital,
		Remarks:   sig.Reason,
	})

	return nil
}

// closePosition exits p at the bar close. Failing to close is a book
// invariant violation and aborts the session.
func (e *Engine) closePosition(ctx context.Context, s *session, p *position.Position, bar types.Bar, remark string) error {
	price := bar.ClosePrice()

	if err := s.book.CloseAt(p, price, bar.Time); err != nil {
		return err
	}

	s.stats.Trades++
	s.stats.PnL = s.stats.PnL.Add(p.PnL())

	s.record(types.TradeEvent{
		Timestamp: bar.Time,
		Symbol:    p.Symbol(),
		Segment:   s.params.Segment,
		Strategy:  p.Strategy(),
		Action:    types.ActionExit,
		OrderType: types.OrderTypeMarket,
		Quantity:  p.Quantity(),
		Price:     price,
		Broker:    s.params.Broker,
		Mode:      types.ModeBacktest,
		Status:    types.TradeStatusSuccess,
		PnL:       p.PnL(),
		Capital:   s.params.Capital,
		Remarks:   remark + remarkSuffix,
	})

	return nil
}

// record buffers event until the session is marked complete.
func (s *session) record(event types.TradeEvent) {
	s.events = append(s.events, event)
}

// flush journals the buffered events of a completed session. An aborted
// session never reaches here, so it leaves no trade records behind. A
// journal failure is logged only: progress is already advanced.
func (e *Engine) flush(ctx context.Context, s *session) {
	for _, event := range s.events {
		metrics.RecordTrade(event.Mode, event.Action)

		if err := e.journal.Log(ctx, event); err != nil {
			s.logger.Error("Failed to journal trade",
				zap.String("action", string(event.Action)),
				zap.Time("bar", event.Timestamp),
				zap.Error(err))
		}
	}

	s.events = nil
}

func views(positions []*position.Position) []position.View {
	out := make([]position.View, 0, len(positions))
	for _, p := range positions {
		out = append(out, p.View())
	}

	return out
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
