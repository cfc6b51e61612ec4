package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/dirstate/internal/directory"
	dserrors "github.com/alexisbeaulieu97/dirstate/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern   = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	stepIDPattern   = regexp.MustCompile(`^[a-z0-9_]+$`)
	identityPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*\$?$`)
)

// validatorInstance returns the shared validator with dirstate's custom tags:
// semver, step_id, filemode (octal mode string) and identity (user or group
// name, or a non-negative numeric id).
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("filemode", func(fl validator.FieldLevel) bool {
			_, err := directory.ParseMode(fl.Field().String())
			return err == nil
		})

		_ = v.RegisterValidation("identity", func(fl validator.FieldLevel) bool {
			value := strings.TrimSpace(fl.Field().String())
			if id, err := strconv.Atoi(value); err == nil {
				return id >= 0
			}
			return identityPattern.MatchString(value)
		})

		validateInst = v
	})

	return validateInst
}

// convertValidationError turns validator output into a ValidationError
// naming the first offending field.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return dserrors.NewValidationError(field, msg, err)
	}

	return dserrors.NewValidationError("config", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.StructNamespace())
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
