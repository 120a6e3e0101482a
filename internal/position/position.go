package position

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// ExitReason names the trigger that fired on a price check.
type ExitReason string

const (
	ExitNone     ExitReason = ""
	ExitStopLoss ExitReason = "stop_loss"
	ExitTarget   ExitReason = "target"
)

// Position is one trade. It is created OPEN by Book.Open and moves to CLOSED
// exactly once through Book.Close. Exit price, exit time and P&L are written
// together in that transition and never again.
type Position struct {
	id         string
	symbol     string
	strategy   string
	side       types.Side
	quantity   int
	entryPrice decimal.Decimal
	stopLoss   optional.Option[decimal.Decimal]
	target     optional.Option[decimal.Decimal]
	entryTime  time.Time

	status    Status
	exitPrice optional.Option[decimal.Decimal]
	exitTime  optional.Option[time.Time]
	pnl       decimal.Decimal
}

func (p *Position) ID() string { return p.id }
func (p *Position) Symbol() string { return p.symbol }
func (p *Position) Strategy() string { return p.strategy }
func (p *Position) Side() types.Side { return p.side }
func (p *Position) Quantity() int { return p.quantity }
func (p *Position) EntryPrice() decimal.Decimal { return p.entryPrice }
func (p *Position) StopLoss() optional.Option[decimal.Decimal] { return p.stopLoss }
func (p *Position) Target() optional.Option[decimal.Decimal] { return p.target }
func (p *Position) EntryTime() time.Time { return p.entryTime }
func (p *Position) Status() Status { return p.status }
func (p *Position) ExitPrice() optional.Option[decimal.Decimal] { return p.exitPrice }
func (p *Position) ExitTime() optional.Option[time.Time] { return p.exitTime }
func (p *Position) IsOpen() bool { return p.status == StatusOpen }

// PnL is the realized P&L. It is zero while the position is open.
func (p *Position) PnL() decimal.Decimal { return p.pnl }

// CalculatePnL is BUY: (price-entry)*qty, SELL: (entry-price)*qty. It ignores
// status, so closed positions can be re-marked for reporting.
func (p *Position) CalculatePnL(currentPrice decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(int64(p.quantity))

	if p.side == types.SideBuy {
		return currentPrice.Sub(p.entryPrice).Mul(qty)
	}

	return p.entryPrice.Sub(currentPrice).Mul(qty)
}

// CheckStopLoss is false without a stop-loss. BUY fires at or below it,
// SELL at or above it.
func (p *Position) CheckStopLoss(currentPrice decimal.Decimal) bool {
	if p.stopLoss.IsNone() {
		return false
	}

	stop := p.stopLoss.Unwrap()
	if p.side == types.SideBuy {
		return currentPrice.LessThanOrEqual(stop)
	}

	return currentPrice.GreaterThanOrEqual(stop)
}

// CheckTarget is false without a target. BUY fires at or above it,
// SELL at or below it.
func (p *Position) CheckTarget(currentPrice decimal.Decimal) bool {
	if p.target.IsNone() {
		return false
	}

	target := p.target.Unwrap()
	if p.side == types.SideBuy {
		return currentPrice.GreaterThanOrEqual(target)
	}

	return currentPrice.LessThanOrEqual(target)
}

// CheckExit evaluates the stop-loss first and the target second, so a price
// that satisfies both reports ExitStopLoss.
func (p *Position) CheckExit(currentPrice decimal.Decimal) ExitReason {
	if p.CheckStopLoss(currentPrice) {
		return ExitStopLoss
	}

	if p.CheckTarget(currentPrice) {
		return ExitTarget
	}

	return ExitNone
}

func (p *Position) close(exitPrice decimal.Decimal, at time.Time) error {
	if p.status == StatusClosed {
		return errors.Newf(errors.ErrCodePositionAlreadyClosed, "position %s (%s) is already closed", p.id, p.symbol)
	}

	p.pnl = p.CalculatePnL(exitPrice)
	p.exitPrice = optional.Some(exitPrice)
	p.exitTime = optional.Some(at)
	p.status = StatusClosed

	return nil
}

// View is a read-only copy of a Position for other goroutines and encoders.
type View struct {
	ID         string           `json:"id"`
	Symbol     string           `json:"symbol"`
	Strategy   string           `json:"strategy"`
	Side       types.Side       `json:"side"`
	Quantity   int              `json:"quantity"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	Target     *decimal.Decimal `json:"target,omitempty"`
	EntryTime  time.Time        `json:"entry_time"`
	Status     Status           `json:"status"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	ExitTime   *time.Time       `json:"exit_time,omitempty"`
	PnL        decimal.Decimal  `json:"pnl"`
}

// View copies the current state of p.
func (p *Position) View() View {
	return View{
		ID:         p.id,
		Symbol:     p.symbol,
		Strategy:   p.strategy,
		Side:       p.side,
		Quantity:   p.quantity,
		EntryPrice: p.entryPrice,
		StopLoss:   toPtr(p.stopLoss),
		Target:     toPtr(p.target),
		EntryTime:  p.entryTime,
		Status:     p.status,
		ExitPrice:  toPtr(p.exitPrice),
		ExitTime:   toPtr(p.exitTime),
		PnL:        p.pnl,
	}
}

func toPtr[T any](o optional.Option[T]) *T {
	if o.IsNone() {
		return nil
	}

	v := o.Unwrap()

	return &v
}
