package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
)

const SMACrossoverName = "SMA_Crossover"

type SMACrossoverParams struct {
	ShortPeriod int     `yaml:"short_period" json:"short_period" jsonschema:"title=Short Period,minimum=1,default=10" validate:"gt=0,ltfield=LongPeriod"`
	LongPeriod  int     `yaml:"long_period" json:"long_period" jsonschema:"title=Long Period,minimum=2,default=20" validate:"gt=0"`
	StopLossPct float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" jsonschema:"title=Stop Loss %,default=2" validate:"gt=0,lt=100"`
	TargetPct   float64 `yaml:"target_pct" json:"target_pct" jsonschema:"title=Target %,default=4" validate:"gt=0"`
}

// SMACrossover buys when the short SMA crosses above the long SMA and sells
// on the opposite cross. Stop and target sit a fixed percentage from the close.
type SMACrossover struct {
	params SMACrossoverParams
}

func NewSMACrossover() *SMACrossover {
	return &SMACrossover{
		params: SMACrossoverParams{
			ShortPeriod: 10,
			LongPeriod:  20,
			StopLossPct: 2.0,
			TargetPct:   4.0,
		},
	}
}

func (s *SMACrossover) Name() string {
	return SMACrossoverName
}

func (s *SMACrossover) Parameters() any {
	return s.params
}

func (s *SMACrossover) SetParameters(params map[string]any) error {
	next := s.params
	if err := decodeParameters(params, &next); err != nil {
		return err
	}

	s.params = next

	return nil
}

// GenerateSignal requires both averages to be defined on the previous and
// the current bar.
func (s *SMACrossover) GenerateSignal(window []types.Bar, _ types.SymbolInfo) (optional.Option[types.Signal], error) {
	none := optional.None[types.Signal]()

	if len(window) < 2 || len(window) < s.params.LongPeriod {
		return none, nil
	}

	closes := types.Closes(window)

	short, err := indicator.SMA(closes, s.params.ShortPeriod)
	if err != nil {
		return none, err
	}

	long, err := indicator.SMA(closes, s.params.LongPeriod)
	if err != nil {
		return none, err
	}

	last := len(window) - 1
	if short[last-1].IsNone() || long[last-1].IsNone() {
		return none, nil
	}

	prevShort, prevLong := short[last-1].Unwrap(), long[last-1].Unwrap()
	curShort, curLong := short[last].Unwrap(), long[last].Unwrap()
	price := window[last].ClosePrice()

	slFrac := decimal.NewFromFloat(s.params.StopLossPct).Div(decimal.NewFromInt(100))
	tpFrac := decimal.NewFromFloat(s.params.TargetPct).Div(decimal.NewFromInt(100))
	one := decimal.NewFromInt(1)

	switch {
	case prevShort <= prevLong && curShort > curLong:
		return optional.Some(types.Signal{
			Action:    types.ActionBuy,
			OrderType: types.OrderTypeMarket,
			Price:     price,
			StopLoss:  optional.Some(price.Mul(one.Sub(slFrac))),
			Target:    optional.Some(price.Mul(one.Add(tpFrac))),
			Reason:    fmt.Sprintf("SMA bullish crossover: %d/%d", s.params.ShortPeriod, s.params.LongPeriod),
		}), nil
	case prevShort >= prevLong && curShort < curLong:
		return optional.Some(types.Signal{
			Action:    types.ActionSell,
			OrderType: types.OrderTypeMarket,
			Price:     price,
			StopLoss:  optional.Some(price.Mul(one.Add(slFrac))),
			Target:    optional.Some(price.Mul(one.Sub(tpFrac))),
			Reason:    fmt.Sprintf("SMA bearish crossover: %d/%d", s.params.ShortPeriod, s.params.LongPeriod),
		}), nil
	default:
		return none, nil
	}
}
