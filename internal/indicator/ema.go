package indicator

import (
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// EMA returns the exponential moving average series of values with
// alpha = 2/(period+1), seeded with the first value and updated as
// ema = v*alpha + prev*(1-alpha). Every entry is defined.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}

	alpha := 2.0 / float64(period+1)
	out[0] = values[0]

	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}

	return out, nil
}
