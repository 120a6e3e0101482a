package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// SwingLow is the lowest low of the lookback bars before the last bar.
// None when fewer than lookback+1 bars are available.
func SwingLow(bars []types.Bar, lookback int) optional.Option[float64] {
	window, ok := priorWindow(bars, lookback)
	if !ok {
		return optional.None[float64]()
	}

	low := window[0].Low
	for _, b := range window[1:] {
		if b.Low < low {
			low = b.Low
		}
	}

	return optional.Some(low)
}

// SwingHigh is the highest high of the lookback bars before the last bar.
// None when fewer than lookback+1 bars are available.
func SwingHigh(bars []types.Bar, lookback int) optional.Option[float64] {
	window, ok := priorWindow(bars, lookback)
	if !ok {
		return optional.None[float64]()
	}

	high := window[0].High
	for _, b := range window[1:] {
		if b.High > high {
			high = b.High
		}
	}

	return optional.Some(high)
}

func priorWindow(bars []types.Bar, lookback int) ([]types.Bar, bool) {
	if lookback <= 0 || len(bars) < lookback+1 {
		return nil, false
	}

	return bars[len(bars)-lookback-1 : len(bars)-1], true
}
