package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/shopspring/decimal"
)

const FiveEMAName = "5EMA_PowerOfStocks"

type FiveEMAParams struct {
	EMAPeriod       int     `yaml:"ema_period" json:"ema_period" jsonschema:"title=EMA Period,minimum=1,default=5" validate:"gt=0"`
	RiskRewardRatio float64 `yaml:"risk_reward_ratio" json:"risk_reward_ratio" jsonschema:"title=Risk Reward Ratio,default=1.5" validate:"gt=0"`
	SwingLookback   int     `yaml:"swing_lookback" json:"swing_lookback" jsonschema:"title=Swing Lookback,minimum=1,default=5" validate:"gt=0"`
	MinCandles      int     `yaml:"min_candles" json:"min_candles" jsonschema:"title=Minimum Candles,minimum=2,default=20" validate:"gte=2"`
	UseTrendFilter  bool    `yaml:"use_trend_filter" json:"use_trend_filter" jsonschema:"title=Use Trend Filter,default=true"`
	TrendEMA        int     `yaml:"trend_ema" json:"trend_ema" jsonschema:"title=Trend EMA,minimum=1,default=50" validate:"gt=0"`
	// MinRiskPct rejects entries whose stop sits closer than this percentage of the price.
	MinRiskPct float64 `yaml:"min_risk_pct" json:"min_risk_pct" jsonschema:"title=Minimum Risk %,default=0.2" validate:"gte=0"`
}

// FiveEMA trades closes crossing the fast EMA, optionally only with the slow
// EMA trend. The stop is the recent swing point and the target is a multiple
// of the risk.
type FiveEMA struct {
	params FiveEMAParams
}

func NewFiveEMA() *FiveEMA {
	return &FiveEMA{
		params: FiveEMAParams{
			EMAPeriod:       5,
			RiskRewardRatio: 1.5,
			SwingLookback:   5,
			MinCandles:      20,
			UseTrendFilter:  true,
			TrendEMA:        50,
			MinRiskPct:      0.2,
		},
	}
}

func (f *FiveEMA) Name() string {
	return FiveEMAName
}

func (f *FiveEMA) Parameters() any {
	return f.params
}

func (f *FiveEMA) SetParameters(params map[string]any) error {
	next := f.params
	if err := decodeParameters(params, &next); err != nil {
		return err
	}

	f.params = next

	return nil
}

func (f *FiveEMA) GenerateSignal(window []types.Bar, _ types.SymbolInfo) (optional.Option[types.Signal], error) {
	none := optional.None[types.Signal]()

	if len(window) < 2 || len(window) < f.params.MinCandles {
		return none, nil
	}

	closes := types.Closes(window)

	fast, err := indicator.EMA(closes, f.params.EMAPeriod)
	if err != nil {
		return none, err
	}

	var trend []float64
	if f.params.UseTrendFilter {
		trend, err = indicator.EMA(closes, f.params.TrendEMA)
		if err != nil {
			return none, err
		}
	}

	last := len(window) - 1
	prev, cur := closes[last-1], closes[last]

	switch {
	case prev <= fast[last-1] && cur > fast[last]:
		if trend != nil && cur < trend[last] {
			return none, nil
		}

		swing := indicator.SwingLow(window, f.params.SwingLookback)
		if swing.IsNone() {
			return none, nil
		}

		return f.entry(types.ActionBuy, window[last].ClosePrice(), decimal.NewFromFloat(swing.Unwrap())), nil
	case prev >= fast[last-1] && cur < fast[last]:
		if trend != nil && cur > trend[last] {
			return none, nil
		}

		swing := indicator.SwingHigh(window, f.params.SwingLookback)
		if swing.IsNone() {
			return none, nil
		}

		return f.entry(types.ActionSell, window[last].ClosePrice(), decimal.NewFromFloat(swing.Unwrap())), nil
	default:
		return none, nil
	}
}

// entry builds the signal, or None when the swing stop is on the wrong side
// of the price or too close to it.
func (f *FiveEMA) entry(action types.Action, price, stop decimal.Decimal) optional.Option[types.Signal] {
	risk := price.Sub(stop)
	if action == types.ActionSell {
		risk = stop.Sub(price)
	}

	minRisk := price.Mul(decimal.NewFromFloat(f.params.MinRiskPct)).Div(decimal.NewFromInt(100))
	if !risk.IsPositive() || risk.LessThan(minRisk) {
		return optional.None[types.Signal]()
	}

	reward := risk.Mul(decimal.NewFromFloat(f.params.RiskRewardRatio))
	target := price.Add(reward)
	direction := "above"

	if action == types.ActionSell {
		target = price.Sub(reward)
		direction = "below"
	}

	return optional.Some(types.Signal{
		Action:    action,
		OrderType: types.OrderTypeMarket,
		Price:     price,
		StopLoss:  optional.Some(stop),
		Target:    optional.Some(target),
		Reason: fmt.Sprintf("Price crossed %s %dEMA at %s, SL: %s, Target: %s",
			direction, f.params.EMAPeriod, price.StringFixed(2), stop.StringFixed(2), target.StringFixed(2)),
	})
}
