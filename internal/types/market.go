package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV candle.
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ClosePrice returns the close as a decimal for money math.
func (b Bar) ClosePrice() decimal.Decimal {
	return decimal.NewFromFloat(b.Close)
}

// Closes extracts the close series from bars.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	return closes
}

// SymbolInfo describes a tradable instrument.
type SymbolInfo struct {
	Symbol   string `yaml:"symbol" json:"symbol" toml:"symbol" validate:"required"`
	Exchange string `yaml:"exchange" json:"exchange" toml:"exchange" validate:"required"`
	Token    string `yaml:"token" json:"token" toml:"token"`
	LotSize  int    `yaml:"lot_size" json:"lot_size" toml:"lot_size" validate:"gte=1"`
	Active   bool   `yaml:"active" json:"active" toml:"active"`
}
