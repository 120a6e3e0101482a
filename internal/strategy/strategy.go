package strategy

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Strategy turns a point-in-time window of bars into at most one signal for
// the last bar. Implementations hold no state besides their parameters, so
// replaying the same window yields the same signal.
type Strategy interface {
	// Name is the registry key and the strategy column of the journal.
	Name() string
	// GenerateSignal inspects window, oldest first. None means no action.
	GenerateSignal(window []types.Bar, info types.SymbolInfo) (optional.Option[types.Signal], error)
	// Parameters returns a copy of the current parameters.
	Parameters() any
	// SetParameters overlays params onto the current parameters and validates
	// the result. Keys use the snake_case names of the parameters.
	SetParameters(params map[string]any) error
}

// decodeParameters overlays params onto target through a YAML round trip and
// validates the outcome. target must be a pointer to a parameters struct.
func decodeParameters(params map[string]any, target any) error {
	raw, err := yaml.Marshal(params)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to encode parameters", err)
	}

	if err := yaml.Unmarshal(raw, target); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode parameters", err)
	}

	if err := validator.New().Struct(target); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid parameters", err)
	}

	return nil
}
