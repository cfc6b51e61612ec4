package config

import (
	"fmt"

	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

// ValidateStep checks a single step independent of the rest of the document.
func ValidateStep(step Step) error {
	v := validatorInstance()
	if err := v.Struct(step); err != nil {
		return convertValidationError(err)
	}

	switch step.Type {
	case StepTypeDirectory:
		if step.Directory == nil {
			return dserrors.NewValidationError(step.ID, "directory configuration is required", nil)
		}
		if err := v.Struct(step.Directory); err != nil {
			return convertValidationError(err)
		}
		if _, _, err := step.Directory.DesiredState(); err != nil {
			return dserrors.NewValidationError(step.ID, err.Error(), err)
		}
	default:
		return dserrors.NewValidationError(step.ID, fmt.Sprintf("unknown step type %q", step.Type), nil)
	}

	return nil
}
