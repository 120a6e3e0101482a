package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Mode is the run mode recorded with every journaled trade.
type Mode string

type TradeStatus string

const (
	ModePaper    Mode = "paper"
	ModeLive     Mode = "live"
	ModeBacktest Mode = "backtest"
)

const (
	TradeStatusSuccess TradeStatus = "SUCCESS"
	TradeStatusFailed  TradeStatus = "FAILED"
)

const (
	RemarkStopLoss   = "Stop loss hit"
	RemarkTarget     = "Target hit"
	RemarkSessionEnd = "Session end"
	RemarkCloseAll   = "Close all"
	RemarkExitSignal = "Exit signal"
)

// TradeEvent is one flat journal record. The engines emit one on every open
// and one on every close.
type TradeEvent struct {
	Timestamp time.Time       `json:"timestamp" validate:"required"`
	Symbol    string          `json:"symbol" validate:"required"`
	Segment   string          `json:"segment"`
	Strategy  string          `json:"strategy" validate:"required"`
	Action    Action          `json:"action" validate:"required,oneof=BUY SELL EXIT"`
	OrderType OrderType       `json:"order_type"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Price     decimal.Decimal `json:"price"`
	Broker    string          `json:"broker"`
	Mode      Mode            `json:"mode" validate:"required,oneof=paper live backtest"`
	OrderID   string          `json:"order_id"`
	Status    TradeStatus     `json:"status" validate:"required,oneof=SUCCESS FAILED"`
	PnL       decimal.Decimal `json:"pnl"`
	Capital   decimal.Decimal `json:"capital"`
	Remarks   string          `json:"remarks"`
}

// IsExit reports whether the event closed a position.
func (t TradeEvent) IsExit() bool {
	return t.Action == ActionExit
}

// Validate validates the TradeEvent struct.
func (t TradeEvent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(t); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid trade event", err)
	}

	return nil
}
