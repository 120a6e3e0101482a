package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// DataGenerator generates synthetic candles for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "NIFTY", "RELIANCE")
	Symbol string
	// StartTime is the time of the first bar
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement per bar (0.01 = 1%)
	Volatility float64
	// Trend is the total drift spread across the series
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
}

// DefaultConfig returns one trading day of 1-minute NSE bars.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "NIFTY",
		StartTime:    time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		Interval:     time.Minute,
		Count:        375,
		InitialPrice: 21000,
		Volatility:   0.002,
		Trend:        0.0,
		VolumeBase:   10000,
	}
}

// Generate creates bars following a geometric random walk.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	at := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := price

		// Box-Muller
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0 {
			close = open * 0.99
		}

		high := math.Max(open, close) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, close) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)

		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		bars[i] = types.Bar{
			Symbol: config.Symbol,
			Time:   at,
			Open:   roundToDecimals(open, 2),
			High:   roundToDecimals(high, 2),
			Low:    roundToDecimals(low, 2),
			Close:  roundToDecimals(close, 2),
			Volume: roundToDecimals(config.VolumeBase*(0.7+g.rng.Float64()*0.6), 0),
		}

		price = close
		at = at.Add(config.Interval)
	}

	return bars
}

// BarsFromCloses builds flat bars (open=high=low=close) from a close series,
// one per interval starting at start.
func BarsFromCloses(symbol string, start time.Time, interval time.Duration, closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * interval),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
