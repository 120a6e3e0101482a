package strategy

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StrategyTestSuite struct {
	suite.Suite
	info types.SymbolInfo
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (s *StrategyTestSuite) SetupTest() {
	s.info = types.SymbolInfo{Symbol: "NIFTY", Exchange: "NSE", LotSize: 1, Active: true}
}

// bars builds a window where each bar's low and high sit one point around the close
// unless overridden.
func bars(closes []float64, lows map[int]float64, highs map[int]float64) []types.Bar {
	start := time.Date(2020, 1, 1, 9, 15, 0, 0, time.UTC)
	out := make([]types.Bar, len(closes))

	for i, c := range closes {
		low, high := c-1, c+1
		if v, ok := lows[i]; ok {
			low = v
		}

		if v, ok := highs[i]; ok {
			high = v
		}

		out[i] = types.Bar{
			Symbol: "NIFTY",
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   high,
			Low:    low,
			Close:  c,
			Volume: 1000,
		}
	}

	return out
}

func (s *StrategyTestSuite) TestRegistry() {
	r := DefaultRegistry()
	s.Equal([]string{FiveEMAName, SMACrossoverName}, r.List())

	st, err := r.New(SMACrossoverName)
	s.Require().NoError(err)
	s.Equal(SMACrossoverName, st.Name())

	_, err = r.New("RSI_Reversal")
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))

	err = r.Register(SMACrossoverName, func() Strategy { return NewSMACrossover() })
	s.True(errors.HasCode(err, errors.ErrCodeStrategyAlreadyExists))

	err = r.Register("", nil)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *StrategyTestSuite) TestRegistryReturnsFreshInstances() {
	r := DefaultRegistry()
	a, _ := r.New(SMACrossoverName)
	b, _ := r.New(SMACrossoverName)

	s.Require().NoError(a.SetParameters(map[string]any{"short_period": 3}))
	s.Equal(10, b.Parameters().(SMACrossoverParams).ShortPeriod)
}

func (s *StrategyTestSuite) TestSMACrossoverSignals() {
	st := NewSMACrossover()
	s.Require().NoError(st.SetParameters(map[string]any{"short_period": 2, "long_period": 3}))

	tests := []struct {
		name   string
		closes []float64
		action types.Action
		none   bool
	}{
		{name: "bullish cross", closes: []float64{10, 10, 10, 10, 13}, action: types.ActionBuy},
		{name: "bearish cross", closes: []float64{10, 10, 10, 10, 7}, action: types.ActionSell},
		{name: "trend without cross", closes: []float64{1, 2, 3, 4, 5}, none: true},
		{name: "too short", closes: []float64{10, 13}, none: true},
		{name: "long average undefined on previous bar", closes: []float64{10, 10, 13}, none: true},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			signal, err := st.GenerateSignal(bars(tc.closes, nil, nil), s.info)
			s.Require().NoError(err)

			if tc.none {
				s.True(signal.IsNone())

				return
			}

			s.Require().True(signal.IsSome())
			s.Equal(tc.action, signal.Unwrap().Action)
			s.NoError(signal.Unwrap().Validate())
		})
	}
}

func (s *StrategyTestSuite) TestSMACrossoverLevels() {
	st := NewSMACrossover()
	s.Require().NoError(st.SetParameters(map[string]any{"short_period": 2, "long_period": 3}))

	signal, err := st.GenerateSignal(bars([]float64{10, 10, 10, 10, 13}, nil, nil), s.info)
	s.Require().NoError(err)

	sig := signal.Unwrap()
	s.True(sig.Price.Equal(decimal.NewFromInt(13)))
	s.True(sig.StopLoss.Unwrap().Equal(decimal.RequireFromString("12.74")))
	s.True(sig.Target.Unwrap().Equal(decimal.RequireFromString("13.52")))
	s.Equal("SMA bullish crossover: 2/3", sig.Reason)
}

func (s *StrategyTestSuite) TestSMACrossoverInvalidParameters() {
	st := NewSMACrossover()

	err := st.SetParameters(map[string]any{"short_period": 30})
	s.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
	s.Equal(10, st.Parameters().(SMACrossoverParams).ShortPeriod)
}

func (s *StrategyTestSuite) fiveEMA(params map[string]any) *FiveEMA {
	st := NewFiveEMA()
	base := map[string]any{"ema_period": 3, "min_candles": 3, "swing_lookback": 2}

	for k, v := range params {
		base[k] = v
	}

	s.Require().NoError(st.SetParameters(base))

	return st
}

func (s *StrategyTestSuite) TestFiveEMABullish() {
	st := s.fiveEMA(nil)
	window := bars([]float64{10, 10, 10, 10, 12}, map[int]float64{2: 9.5, 3: 9}, nil)

	signal, err := st.GenerateSignal(window, s.info)
	s.Require().NoError(err)
	s.Require().True(signal.IsSome())

	sig := signal.Unwrap()
	s.Equal(types.ActionBuy, sig.Action)
	s.True(sig.StopLoss.Unwrap().Equal(decimal.NewFromInt(9)))
	s.True(sig.Target.Unwrap().Equal(decimal.RequireFromString("16.5")))
	s.Contains(sig.Reason, "crossed above 3EMA")
}

func (s *StrategyTestSuite) TestFiveEMATrendFilter() {
	closes := []float64{5, 5, 5, 20, 20, 16}
	highs := map[int]float64{3: 21, 4: 22}

	filtered := s.fiveEMA(nil)
	signal, err := filtered.GenerateSignal(bars(closes, nil, highs), s.info)
	s.Require().NoError(err)
	s.True(signal.IsNone())

	unfiltered := s.fiveEMA(map[string]any{"use_trend_filter": false})
	signal, err = unfiltered.GenerateSignal(bars(closes, nil, highs), s.info)
	s.Require().NoError(err)
	s.Require().True(signal.IsSome())

	sig := signal.Unwrap()
	s.Equal(types.ActionSell, sig.Action)
	s.True(sig.StopLoss.Unwrap().Equal(decimal.NewFromInt(22)))
	s.True(sig.Target.Unwrap().Equal(decimal.NewFromInt(7)))
}

func (s *StrategyTestSuite) TestFiveEMARejectsTinyOrInvertedRisk() {
	st := s.fiveEMA(nil)

	tiny := bars([]float64{10, 10, 10, 10, 12}, map[int]float64{2: 11.99, 3: 11.99}, nil)
	signal, err := st.GenerateSignal(tiny, s.info)
	s.Require().NoError(err)
	s.True(signal.IsNone())

	inverted := bars([]float64{10, 10, 10, 10, 12}, map[int]float64{2: 13, 3: 14}, nil)
	signal, err = st.GenerateSignal(inverted, s.info)
	s.Require().NoError(err)
	s.True(signal.IsNone())
}

func (s *StrategyTestSuite) TestFiveEMANeedsMinCandles() {
	st := NewFiveEMA()
	signal, err := st.GenerateSignal(bars([]float64{10, 10, 10, 10, 12}, nil, nil), s.info)
	s.Require().NoError(err)
	s.True(signal.IsNone())
}

func (s *StrategyTestSuite) TestParameterSchema() {
	schema, err := ParameterSchema(NewFiveEMA())
	s.Require().NoError(err)

	var decoded map[string]any
	s.Require().NoError(json.Unmarshal([]byte(schema), &decoded))

	props, ok := decoded["properties"].(map[string]any)
	s.Require().True(ok)
	s.Contains(props, "ema_period")
	s.Contains(props, "use_trend_filter")
}
