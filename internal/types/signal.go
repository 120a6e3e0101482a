package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
)

// Side is the direction of an open position.
type Side string

// Action is what a strategy asks the engine to do.
type Action string

type OrderType string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	// ActionExit closes the open positions the emitting strategy holds on the symbol.
	ActionExit Action = "EXIT"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Signal is a strategy's recommendation for the latest bar of a window.
// It is an immutable input to the engines.
type Signal struct {
	Action    Action          `yaml:"action" json:"action" validate:"required,oneof=BUY SELL EXIT"`
	OrderType OrderType       `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET LIMIT"`
	Price     decimal.Decimal `yaml:"price" json:"price"`
	// StopLoss is optional. Sizing falls back to 2% of the price when absent.
	StopLoss optional.Option[decimal.Decimal] `yaml:"stop_loss" json:"stop_loss"`
	// Target is optional.
	Target optional.Option[decimal.Decimal] `yaml:"target" json:"target"`
	Reason string                           `yaml:"reason" json:"reason"`
}

// Side maps an entry action onto a position side. EXIT has no side.
func (s Signal) Side() (Side, bool) {
	switch s.Action {
	case ActionBuy:
		return SideBuy, true
	case ActionSell:
		return SideSell, true
	default:
		return "", false
	}
}

// Validate validates the Signal struct.
func (s Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyRuntimeError, "invalid signal", err)
	}

	if s.Action != ActionExit && !s.Price.IsPositive() {
		return errors.Newf(errors.ErrCodeStrategyRuntimeError, "signal price must be positive, got %s", s.Price)
	}

	if s.StopLoss.IsSome() && !s.StopLoss.Unwrap().IsPositive() {
		return errors.New(errors.ErrCodeInvalidStopLoss, "stop loss must be positive")
	}

	if s.Target.IsSome() && !s.Target.Unwrap().IsPositive() {
		return errors.New(errors.ErrCodeInvalidTarget, "target must be positive")
	}

	return nil
}
