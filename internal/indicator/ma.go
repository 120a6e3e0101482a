package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// SMA returns the rolling simple moving average of values. Entries before the
// first full window are None.
func SMA(values []float64, period int) ([]optional.Option[float64], error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	out := make([]optional.Option[float64], len(values))
	sum := 0.0

	for i, v := range values {
		sum += v

		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = optional.Some(sum / float64(period))
		} else {
			out[i] = optional.None[float64]()
		}
	}

	return out, nil
}
