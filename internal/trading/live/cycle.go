package live

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/broker"
	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/metrics"
	"github.com/rxtech-lab/argo-autotrader/internal/position"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// refreshConcurrency bounds parallel LTP requests to the broker.
const refreshConcurrency = 4

// SettingsProvider hands out settings snapshots.
type SettingsProvider interface {
	Get() config.Settings
}

// Stats is the live view served to the control surface.
type Stats struct {
	Summary position.Summary   `json:"summary"`
	Journal types.JournalStats `json:"journal"`
	Prices  map[string]string  `json:"prices"`
}

// Cycle is the real-time trading loop body. The goroutine that calls
// RefreshPrices, Tick and CloseAll is the only writer of the book; Stats and
// Positions may be called from any goroutine.
type Cycle struct {
	broker   broker.Broker
	registry strategy.Registry
	cache    PriceCache
	journal  journal.Journal
	book     *position.Book
	settings SettingsProvider
	now      func() time.Time
	logger   *logger.Logger
	ticks    atomic.Int64
}

func NewCycle(
	broker broker.Broker,
	registry strategy.Registry,
	cache PriceCache,
	journal journal.Journal,
	settings SettingsProvider,
	logger *logger.Logger,
) *Cycle {
	return NewCycleWithClock(broker, registry, cache, journal, settings, time.Now, logger)
}

func NewCycleWithClock(
	broker broker.Broker,
	registry strategy.Registry,
	cache PriceCache,
	journal journal.Journal,
	settings SettingsProvider,
	now func() time.Time,
	logger *logger.Logger,
) *Cycle {
	return &Cycle{
		broker:   broker,
		registry: registry,
		cache:    cache,
		journal:  journal,
		book:     position.NewBookWithClock(now),
		settings: settings,
		now:      now,
		logger:   logger,
		ticks:    atomic.Int64{},
	}
}

// RefreshPrices fetches the LTP of every active symbol. A symbol whose fetch
// fails keeps its previous cached price. It returns how many prices were
// updated.
func (c *Cycle) RefreshPrices(ctx context.Context) int {
	cfg := c.settings.Get()
	symbols := cfg.ActiveSymbols()
	if len(symbols) == 0 {
		return 0
	}

	var updated atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)

	for _, info := range symbols {
		g.Go(func() error {
			ltp, err := c.broker.GetLTP(gctx, info.Symbol, info.Exchange)
			if err != nil {
				c.logger.Warn("LTP fetch failed, keeping cached price",
					zap.String("symbol", info.Symbol),
					zap.Error(err))

				return nil
			}

			if err := c.cache.Set(gctx, info.Symbol, ltp, c.now()); err != nil {
				c.logger.Warn("Failed to cache LTP", zap.String("symbol", info.Symbol), zap.Error(err))

				return nil
			}

			updated.Add(1)

			return nil
		})
	}

	_ = g.Wait()

	c.logger.Info("Updated LTP", zap.Int64("updated", updated.Load()), zap.Int("symbols", len(symbols)))

	return int(updated.Load())
}

// Tick runs one cycle over the cached prices: exits first, then a scan for
// new entries. Callers refresh the cache right before.
func (c *Cycle) Tick(ctx context.Context) {
	c.ticks.Add(1)

	cfg := c.settings.Get()

	c.CheckExits(ctx, cfg)
	c.Scan(ctx, cfg)

	summary := c.book.Summary(nil)
	metrics.UpdateBook(cfg.Mode, summary.OpenCount, summary.RealizedPnL)
}

// Ticks returns how many cycles have run.
func (c *Cycle) Ticks() int64 {
	return c.ticks.Load()
}

// CheckExits closes positions whose stop-loss or target is hit by the cached
// price. Positions without a cached price are left alone.
func (c *Cycle) CheckExits(ctx context.Context, cfg config.Settings) {
	open := c.book.GetOpen()
	if len(open) == 0 {
		return
	}

	prices, err := c.cache.Prices(ctx, symbolsOf(open))
	if err != nil {
		c.logger.Warn("Skipping exit check, prices unavailable", zap.Error(err))

		return
	}

	for _, p := range open {
		ltp, ok := prices[p.Symbol()]
		if !ok {
			continue
		}

		var remark string

		switch p.CheckExit(ltp) {
		case position.ExitStopLoss:
			remark = types.RemarkStopLoss
		case position.ExitTarget:
			remark = types.RemarkTarget
		default:
			continue
		}

		c.logger.Info(remark, zap.String("symbol", p.Symbol()), zap.String("ltp", ltp.String()))
		c.exit(ctx, cfg, p, ltp, remark)
	}
}

// Scan fetches recent bars once per active symbol and runs every active
// strategy over them.
func (c *Cycle) Scan(ctx context.Context, cfg config.Settings) {
	symbols := cfg.ActiveSymbols()
	if len(symbols) == 0 || len(cfg.ActiveStrategies) == 0 {
		c.logger.Debug("Nothing to scan")

		return
	}

	strategies := make([]strategy.Strategy, 0, len(cfg.ActiveStrategies))

	for _, name := range cfg.ActiveStrategies {
		s, err := c.registry.New(name)
		if err != nil {
			c.logger.Error("Unknown strategy", zap.String("strategy", name), zap.Error(err))

			continue
		}

		strategies = append(strategies, s)
	}

	now := c.now()
	from := now.AddDate(0, 0, -cfg.Realtime.LookbackDays)

	for _, info := range symbols {
		if ctx.Err() != nil {
			return
		}

		bars, err := c.broker.GetHistoricalData(ctx, info.Symbol, info.Exchange, from, now, cfg.Realtime.CandleInterval)
		if err != nil || len(bars) == 0 {
			c.logger.Debug("No data for symbol", zap.String("symbol", info.Symbol), zap.Error(err))

			continue
		}

		for _, s := range strategies {
			signal, err := s.GenerateSignal(bars, info)
			if err != nil {
				c.logger.Error("Strategy failed", zap.String("strategy", s.Name()), zap.String("symbol", info.Symbol), zap.Error(err))

				continue
			}

			if signal.IsNone() {
				continue
			}

			sig := signal.Unwrap()
			if err := sig.Validate(); err != nil {
				c.logger.Warn("Ignoring invalid signal", zap.String("strategy", s.Name()), zap.Error(err))

				continue
			}

			c.logger.Info("Signal",
				zap.String("symbol", info.Symbol),
				zap.String("strategy", s.Name()),
				zap.String("action", string(sig.Action)),
				zap.String("reason", sig.Reason))

			c.execute(ctx, cfg, info, s.Name(), sig)
		}
	}
}

func (c *Cycle) execute(ctx context.Context, cfg config.Settings, info types.SymbolInfo, strategyName string, sig types.Signal) {
	if sig.Action == types.ActionExit {
		for _, p := range c.book.GetBySymbol(info.Symbol) {
			if !p.IsOpen() || p.Strategy() != strategyName {
				continue
			}

			remark := sig.Reason
			if remark == "" {
				remark = types.RemarkExitSignal
			}

			c.exit(ctx, cfg, p, sig.Price, remark)
		}

		return
	}

	if c.book.OpenCount() >= cfg.MaxTrades {
		c.logger.Warn("Max trades limit reached", zap.Int("max_trades", cfg.MaxTrades))

		return
	}

	capital := decimal.NewFromFloat(cfg.Capital)
	stop := risk.StopOrDefault(sig.StopLoss, sig.Price)

	qty := risk.CalculateQuantity(capital, decimal.NewFromFloat(cfg.RiskPerTrade), sig.Price, stop, info.LotSize)
	if qty == 0 {
		c.logger.Info("Signal skipped, no lot fits the risk budget",
			zap.String("symbol", info.Symbol),
			zap.String("price", sig.Price.String()))

		return
	}

	side, _ := sig.Side()
	event := types.TradeEvent{
		Timestamp: c.now(),
		Symbol:    info.Symbol,
		Segment:   cfg.Segment,
		Strategy:  strategyName,
		Action:    sig.Action,
		OrderType: sig.OrderType,
		Quantity:  qty,
		Price:     sig.Price,
		Broker:    cfg.Broker,
		Mode:      cfg.Mode,
		Status:    types.TradeStatusSuccess,
		PnL:       decimal.Zero,
		Capital:   capital,
		Remarks:   sig.Reason,
	}

	orderID, err := c.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:    info.Symbol,
		Exchange:  info.Exchange,
		Side:      side,
		Quantity:  qty,
		OrderType: sig.OrderType,
		Price:     sig.Price,
	})
	if err != nil {
		c.logger.Error("Order failed", zap.String("symbol", info.Symbol), zap.Error(err))

		event.Status = types.TradeStatusFailed
		event.Remarks = err.Error()
		c.record(ctx, event)

		return
	}

	if _, err := c.book.Open(position.OpenRequest{
		Symbol:     info.Symbol,
		Strategy:   strategyName,
		Side:       side,
		Quantity:   qty,
		EntryPrice: sig.Price,
		StopLoss:   sig.StopLoss,
		Target:     sig.Target,
		At:         event.Timestamp,
	}); err != nil {
		c.logger.Error("Failed to open position", zap.String("symbol", info.Symbol), zap.Error(err))

		return
	}

	c.logger.Info("Trade opened",
		zap.String("mode", string(cfg.Mode)),
		zap.String("action", string(sig.Action)),
		zap.String("symbol", info.Symbol),
		zap.Int("quantity", qty),
		zap.String("price", types.FormatAmount(sig.Price)))

	event.OrderID = orderID
	c.record(ctx, event)
}

// exit sends the closing order and closes p at price. A rejected order
// leaves p open for the next tick.
func (c *Cycle) exit(ctx context.Context, cfg config.Settings, p *position.Position, price decimal.Decimal, remark string) {
	if !price.IsPositive() {
		prices, err := c.cache.Prices(ctx, []string{p.Symbol()})
		if err != nil || !prices[p.Symbol()].IsPositive() {
			c.logger.Warn("No price to exit at", zap.String("symbol", p.Symbol()))

			return
		}

		price = prices[p.Symbol()]
	}

	exchange := p.Symbol()
	if info, err := cfg.Symbol(p.Symbol()); err == nil {
		exchange = info.Exchange
	}

	orderID, err := c.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:    p.Symbol(),
		Exchange:  exchange,
		Side:      opposite(p.Side()),
		Quantity:  p.Quantity(),
		OrderType: types.OrderTypeMarket,
		Price:     price,
	})
	if err != nil {
		c.logger.Error("Exit order failed, position stays open", zap.String("symbol", p.Symbol()), zap.Error(err))

		return
	}

	at := c.now()
	if err := c.book.CloseAt(p, price, at); err != nil {
		c.logger.Error("Failed to close position", zap.String("symbol", p.Symbol()), zap.Error(err))

		return
	}

	c.recordExit(ctx, cfg, p, orderID, remark)
}

// CloseAll closes every open position at its cached price. Symbols without
// a cached price are skipped and reported.
func (c *Cycle) CloseAll(ctx context.Context) (position.CloseAllResult, error) {
	cfg := c.settings.Get()
	open := c.book.GetOpen()

	prices, err := c.cache.Prices(ctx, symbolsOf(open))
	if err != nil {
		return position.CloseAllResult{}, err
	}

	result := c.book.CloseAll(prices)

	for _, p := range result.Closed {
		c.recordExit(ctx, cfg, p, "", types.RemarkCloseAll)
	}

	if len(result.Skipped) > 0 {
		c.logger.Warn("Positions left open without a price", zap.Strings("symbols", result.Skipped))
	}

	c.logger.Info("Closed positions",
		zap.Int("count", len(result.Closed)),
		zap.String("pnl", types.FormatPnL(result.PnL())))

	summary := c.book.Summary(nil)
	metrics.UpdateBook(cfg.Mode, summary.OpenCount, summary.RealizedPnL)

	return result, nil
}

// Stats summarizes the book against cached prices and adds the journal
// totals.
func (c *Cycle) Stats(ctx context.Context) (Stats, error) {
	open := c.book.GetOpen()

	prices, err := c.cache.Prices(ctx, symbolsOf(open))
	if err != nil {
		return Stats{}, err
	}

	journalStats, err := c.journal.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}

	rendered := make(map[string]string, len(prices))
	for symbol, price := range prices {
		rendered[symbol] = price.String()
	}

	return Stats{
		Summary: c.book.Summary(prices),
		Journal: journalStats,
		Prices:  rendered,
	}, nil
}

// Positions returns copies of every position in the book.
func (c *Cycle) Positions() []position.View {
	return c.book.Views()
}

func (c *Cycle) recordExit(ctx context.Context, cfg config.Settings, p *position.Position, orderID string, remark string) {
	exitPrice := p.ExitPrice().Unwrap()

	c.record(ctx, types.TradeEvent{
		Timestamp: p.ExitTime().Unwrap(),
		Symbol:    p.Symbol(),
		Segment:   cfg.Segment,
		Strategy:  p.Strategy(),
		Action:    types.ActionExit,
		OrderType: types.OrderTypeMarket,
		Quantity:  p.Quantity(),
		Price:     exitPrice,
		Broker:    cfg.Broker,
		Mode:      cfg.Mode,
		OrderID:   orderID,
		Status:    types.TradeStatusSuccess,
		PnL:       p.PnL(),
		Capital:   decimal.NewFromFloat(cfg.Capital),
		Remarks:   remark,
	})
}

func (c *Cycle) record(ctx context.Context, event types.TradeEvent) {
	metrics.RecordTrade(event.Mode, event.Action)

	if err := c.journal.Log(ctx, event); err != nil {
		c.logger.Error("Failed to journal trade", zap.String("symbol", event.Symbol), zap.Error(err))
	}
}

func symbolsOf(positions []*position.Position) []string {
	seen := make(map[string]bool, len(positions))
	symbols := make([]string, 0, len(positions))

	for _, p := range positions {
		if !seen[p.Symbol()] {
			seen[p.Symbol()] = true
			symbols = append(symbols, p.Symbol())
		}
	}

	return symbols
}

func opposite(side types.Side) types.Side {
	if side == types.SideBuy {
		return types.SideSell
	}

	return types.SideBuy
}
