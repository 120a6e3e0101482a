package position

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// OpenRequest carries the fields of a new position.
type OpenRequest struct {
	Symbol     string                           `validate:"required"`
	Strategy   string                           `validate:"required"`
	Side       types.Side                       `validate:"required,oneof=BUY SELL"`
	Quantity   int                              `validate:"gt=0"`
	EntryPrice decimal.Decimal                  `validate:"-"`
	StopLoss   optional.Option[decimal.Decimal] `validate:"-"`
	Target     optional.Option[decimal.Decimal] `validate:"-"`
	// At is the entry time. The book clock is used when zero.
	At time.Time `validate:"-"`
}

// CloseAllResult lists what CloseAll closed and which symbols had no price.
type CloseAllResult struct {
	Closed  []*Position
	Skipped []string
}

// PnL is the realized P&L of the positions CloseAll closed.
func (r CloseAllResult) PnL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Closed {
		total = total.Add(p.PnL())
	}

	return total
}

// Summary aggregates a book against a price map.
type Summary struct {
	OpenCount     int             `json:"open_count"`
	ClosedCount   int             `json:"closed_count"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	WinRate       decimal.Decimal `json:"win_rate"`
	WinningCount  int             `json:"winning_count"`
	LosingCount   int             `json:"losing_count"`
	// Stale is true when at least one open position had no current price and
	// was valued at its entry price.
	Stale       bool     `json:"stale"`
	StalePrices []string `json:"stale_prices"`
}

// Book owns the positions of one trading session in insertion order. Records
// are never removed. *Position values returned by the book belong to the
// goroutine driving the session; other goroutines read through Views and
// Summary.
type Book struct {
	positions []*Position
	index     map[string]*Position
	now       func() time.Time
	validate  *validator.Validate
	mu        sync.RWMutex
}

// NewBook creates an empty book using the wall clock.
func NewBook() *Book {
	return NewBookWithClock(time.Now)
}

// NewBookWithClock creates an empty book that stamps times with now.
func NewBookWithClock(now func() time.Time) *Book {
	return &Book{
		positions: make([]*Position, 0),
		index:     make(map[string]*Position),
		now:       now,
		validate:  validator.New(),
		mu:        sync.RWMutex{},
	}
}

// Open appends a new OPEN position. There is no position limit here; callers
// gate on OpenCount before opening.
func (b *Book) Open(req OpenRequest) (*Position, error) {
	if err := b.validate.Struct(req); err != nil {
		if req.Quantity <= 0 {
			return nil, errors.Wrapf(errors.ErrCodeInvalidQuantity, err, "quantity must be positive, got %d", req.Quantity)
		}

		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid open request", err)
	}

	if !req.EntryPrice.IsPositive() {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "entry price must be positive, got %s", req.EntryPrice)
	}

	at := req.At
	if at.IsZero() {
		at = b.now()
	}

	p := &Position{
		id:         uuid.New().String(),
		symbol:     req.Symbol,
		strategy:   req.Strategy,
		side:       req.Side,
		quantity:   req.Quantity,
		entryPrice: req.EntryPrice,
		stopLoss:   req.StopLoss,
		target:     req.Target,
		entryTime:  at,
		status:     StatusOpen,
		exitPrice:  optional.None[decimal.Decimal](),
		exitTime:   optional.None[time.Time](),
		pnl:        decimal.Zero,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.positions = append(b.positions, p)
	b.index[p.id] = p

	return p, nil
}

// Close closes p at exitPrice using the book clock.
func (b *Book) Close(p *Position, exitPrice decimal.Decimal) error {
	return b.CloseAt(p, exitPrice, b.now())
}

// CloseAt closes p at exitPrice with the given exit time. It fails when p
// does not belong to this book or is already closed.
func (b *Book) CloseAt(p *Position, exitPrice decimal.Decimal, at time.Time) error {
	if p == nil {
		return errors.New(errors.ErrCodePositionNotInBook, "cannot close a nil position")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if owned, ok := b.index[p.id]; !ok || owned != p {
		return errors.Newf(errors.ErrCodePositionNotInBook, "position %s (%s) does not belong to this book", p.id, p.symbol)
	}

	return p.close(exitPrice, at)
}

// CloseAll closes every open position whose symbol has a price. Symbols with
// open positions but no price are reported in Skipped, each once.
func (b *Book) CloseAll(exitPrices map[string]decimal.Decimal) CloseAllResult {
	result := CloseAllResult{
		Closed:  make([]*Position, 0),
		Skipped: make([]string, 0),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	at := b.now()
	seen := make(map[string]bool)

	for _, p := range b.positions {
		if !p.IsOpen() {
			continue
		}

		price, ok := exitPrices[p.symbol]
		if !ok {
			if !seen[p.symbol] {
				seen[p.symbol] = true
				result.Skipped = append(result.Skipped, p.symbol)
			}

			continue
		}

		// open was checked above under the same lock
		_ = p.close(price, at)
		result.Closed = append(result.Closed, p)
	}

	return result
}

// GetOpen returns the open positions in insertion order.
func (b *Book) GetOpen() []*Position {
	return b.filter(func(p *Position) bool { return p.IsOpen() })
}

// GetClosed returns the closed positions in insertion order.
func (b *Book) GetClosed() []*Position {
	return b.filter(func(p *Position) bool { return !p.IsOpen() })
}

// GetBySymbol returns every position on symbol in insertion order.
func (b *Book) GetBySymbol(symbol string) []*Position {
	return b.filter(func(p *Position) bool { return p.symbol == symbol })
}

// OpenCount is the number of open positions.
func (b *Book) OpenCount() int {
	return len(b.GetOpen())
}

// Views returns copies of every position in insertion order.
func (b *Book) Views() []View {
	b.mu.RLock()
	defer b.mu.RUnlock()

	views := make([]View, 0, len(b.positions))
	for _, p := range b.positions {
		views = append(views, p.View())
	}

	return views
}

// Summary reports realized P&L over closed positions and unrealized P&L over
// open positions marked at currentPrices. An open position without a price is
// valued at its entry price, which contributes zero, and its symbol is
// listed in StalePrices.
func (b *Book) Summary(currentPrices map[string]decimal.Decimal) Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Summary{
		RealizedPnL:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		TotalPnL:      decimal.Zero,
		WinRate:       decimal.Zero,
		StalePrices:   make([]string, 0),
	}

	stale := make(map[string]bool)

	for _, p := range b.positions {
		if !p.IsOpen() {
			s.ClosedCount++
			s.RealizedPnL = s.RealizedPnL.Add(p.pnl)

			if p.pnl.IsPositive() {
				s.WinningCount++
			}

			continue
		}

		s.OpenCount++

		price, ok := currentPrices[p.symbol]
		if !ok {
			price = p.entryPrice

			if !stale[p.symbol] {
				stale[p.symbol] = true
				s.StalePrices = append(s.StalePrices, p.symbol)
			}
		}

		s.UnrealizedPnL = s.UnrealizedPnL.Add(p.CalculatePnL(price))
	}

	s.LosingCount = s.ClosedCount - s.WinningCount
	s.TotalPnL = s.RealizedPnL.Add(s.UnrealizedPnL)
	s.Stale = len(s.StalePrices) > 0

	if s.ClosedCount > 0 {
		s.WinRate = decimal.NewFromInt(int64(s.WinningCount)).
			Div(decimal.NewFromInt(int64(s.ClosedCount))).
			Mul(decimal.NewFromInt(100))
	}

	return s
}

func (b *Book) filter(keep func(*Position) bool) []*Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*Position, 0)

	for _, p := range b.positions {
		if keep(p) {
			out = append(out, p)
		}
	}

	return out
}
