package config

import (
	"fmt"
	"strings"

	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

// ValidateConfig performs structural and cross-step validation on a whole
// document: schema tags, duplicate ids, unknown dependencies and cycles.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return dserrors.NewValidationError("config", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]struct{}, len(cfg.Steps))
	for i, step := range cfg.Steps {
		if _, exists := seen[step.ID]; exists {
			return dserrors.NewValidationError(fieldForStep(i, "id"), fmt.Sprintf("duplicate step id %q", step.ID), nil)
		}
		if err := ValidateStep(step); err != nil {
			return err
		}
		seen[step.ID] = struct{}{}
	}

	for i, step := range cfg.Steps {
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				return dserrors.NewValidationError(fieldForStep(i, "depends_on"), fmt.Sprintf("references unknown step %q", dep), nil)
			}
			if dep == step.ID {
				return dserrors.NewValidationError(fieldForStep(i, "depends_on"), "step cannot depend on itself", nil)
			}
		}
	}

	if cycle := detectCycle(cfg.Steps); len(cycle) > 0 {
		return dserrors.NewValidationError("steps", fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
	}

	return nil
}
