package strategy

import (
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/rxtech-lab/argo-autotrader/pkg/utils"
)

// ParameterSchema returns the JSON schema of a strategy's parameters.
func ParameterSchema(s Strategy) (string, error) {
	schema, err := utils.GetSchemaFromConfig(s.Parameters())
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to encode schema for %s", s.Name())
	}

	return schema, nil
}
