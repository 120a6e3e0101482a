package mocks

import (
	"testing"
	"time"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	data := gen.Generate(config)

	if len(data) != 100 {
		t.Errorf("expected 100 bars, got %d", len(data))
	}

	for i, d := range data {
		if d.Symbol != config.Symbol {
			t.Errorf("expected symbol %s at index %d, got %s", config.Symbol, i, d.Symbol)
		}

		if d.Open <= 0 || d.High <= 0 || d.Low <= 0 || d.Close <= 0 {
			t.Errorf("invalid OHLC values at index %d: O=%f H=%f L=%f C=%f", i, d.Open, d.High, d.Low, d.Close)
		}

		if d.High < d.Low {
			t.Errorf("High < Low at index %d: H=%f L=%f", i, d.High, d.Low)
		}

		if i > 0 && d.Time.Sub(data[i-1].Time) != config.Interval {
			t.Errorf("unexpected interval at index %d", i)
		}
	}
}

func TestDataGenerator_Reproducible(t *testing.T) {
	config := DefaultConfig()
	config.Count = 50

	a := NewDataGenerator(7).Generate(config)
	b := NewDataGenerator(7).Generate(config)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bars differ at index %d", i)
		}
	}
}

func TestBarsFromCloses(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := BarsFromCloses("NIFTY", start, 24*time.Hour, 100, 105, 111)

	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}

	if bars[2].Close != 111 || !bars[2].Time.Equal(start.Add(48*time.Hour)) {
		t.Errorf("unexpected last bar: %+v", bars[2])
	}
}
