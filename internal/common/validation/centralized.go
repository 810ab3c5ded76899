// Package validation wraps go-playground/validator with the tags used by
// preview requests, operator parameters and service configuration.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"spectral-workbench/internal/common/errors"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// NewCentralizedValidator creates a validator with the preview tags registered.
// Messages name fields by their JSON key.
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()
	registerPreviewValidators(v)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{validator: v}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return toAppError(err)
	}
	return nil
}

// ValidateVar validates a single value against tag
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return toAppError(err)
	}
	return nil
}

// toAppError joins field messages into one validation AppError. The
// failing fields are attached as context under "fields".
func toAppError(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ValidationError(err.Error())
	}

	messages := make([]string, len(fieldErrs))
	fields := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = fieldMessage(fe)
		fields[i] = fe.Field()
	}
	return newError(messages).WithContext("fields", fields)
}

func newError(messages []string) *errors.AppError {
	if len(messages) == 1 {
		return errors.ValidationError(messages[0])
	}
	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func fieldMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("field '%s' must be greater than or equal to %s", err.Field(), err.Param())
	case "lt":
		return fmt.Sprintf("field '%s' must be less than %s", err.Field(), err.Param())
	case "ltfield":
		return fmt.Sprintf("field '%s' must be less than '%s'", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param())
	case "odd":
		return fmt.Sprintf("field '%s' must be an odd number", err.Field())
	case "step_type":
		return fmt.Sprintf("field '%s' must be 'transform' or 'split'", err.Field())
	case "sampling_method":
		return fmt.Sprintf("field '%s' must be one of: all, random, stratified, kmeans", err.Field())
	case "cron_schedule":
		return fmt.Sprintf("field '%s' must be a valid cron schedule", err.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}

// registerPreviewValidators registers the custom tags used by request and operator structs
func registerPreviewValidators(v *validator.Validate) {
	// Savitzky-Golay windows must be centred on a sample
	v.RegisterValidation("odd", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 != 0
	})

	v.RegisterValidation("step_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "transform", "split":
			return true
		}
		return false
	})

	v.RegisterValidation("sampling_method", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "", "all", "random", "stratified", "kmeans":
			return true
		}
		return false
	})

	// Standard 5-field specs and descriptors such as "@every 1m"
	v.RegisterValidation("cron_schedule", func(fl validator.FieldLevel) bool {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		_, err := parser.Parse(fl.Field().String())
		return err == nil
	})
}

var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}

// FluentValidator accumulates errors from chained checks on named values,
// typically environment variables
type FluentValidator struct {
	messages []string
}

// NewFluentValidator creates a fluent validator
func NewFluentValidator() *FluentValidator {
	return &FluentValidator{}
}

func (fv *FluentValidator) fail(format string, args ...interface{}) *FluentValidator {
	fv.messages = append(fv.messages, fmt.Sprintf(format, args...))
	return fv
}

// RequirePositive validates that an integer is at least 1
func (fv *FluentValidator) RequirePositive(value int, name string) *FluentValidator {
	if value < 1 {
		return fv.fail("%s must be positive", name)
	}
	return fv
}

// RequirePositiveFloat validates that a float is greater than zero
func (fv *FluentValidator) RequirePositiveFloat(value float64, name string) *FluentValidator {
	if !(value > 0) {
		return fv.fail("%s must be positive", name)
	}
	return fv
}

// RequireRange validates that a value is within [min, max]
func (fv *FluentValidator) RequireRange(value, min, max int, name string) *FluentValidator {
	if value < min || value > max {
		return fv.fail("%s must be between %d and %d", name, min, max)
	}
	return fv
}

// RequireOneOf validates that a value is one of the allowed values
func (fv *FluentValidator) RequireOneOf(value string, allowed []string, name string) *FluentValidator {
	for _, a := range allowed {
		if value == a {
			return fv
		}
	}
	return fv.fail("%s must be one of: %s", name, strings.Join(allowed, ", "))
}

// RequireDuration validates that a duration is not negative
func (fv *FluentValidator) RequireDuration(value time.Duration, name string) *FluentValidator {
	if value < 0 {
		return fv.fail("%s must not be negative", name)
	}
	return fv
}

// RequirePositiveDuration validates that a duration is greater than zero
func (fv *FluentValidator) RequirePositiveDuration(value time.Duration, name string) *FluentValidator {
	if value <= 0 {
		return fv.fail("%s must be positive", name)
	}
	return fv
}

// RequireCronSchedule validates a robfig/cron schedule spec such as "@every 1m"
func (fv *FluentValidator) RequireCronSchedule(value, name string) *FluentValidator {
	if err := globalValidator.ValidateVar(value, "required,cron_schedule"); err != nil {
		return fv.fail("%s must be a valid cron schedule", name)
	}
	return fv
}

// Validate runs a custom validation function
func (fv *FluentValidator) Validate(fn func() error) *FluentValidator {
	if err := fn(); err != nil {
		if appErr, ok := errors.As(err); ok {
			return fv.fail("%s", appErr.Message)
		}
		return fv.fail("%s", err.Error())
	}
	return fv
}

// ValidateIf runs fn only when condition holds
func (fv *FluentValidator) ValidateIf(condition bool, fn func() error) *FluentValidator {
	if condition {
		return fv.Validate(fn)
	}
	return fv
}

// HasErrors returns true if there are validation errors
func (fv *FluentValidator) HasErrors() bool {
	return len(fv.messages) > 0
}

// Error returns the accumulated validation error, or nil
func (fv *FluentValidator) Error() error {
	if !fv.HasErrors() {
		return nil
	}
	return newError(fv.messages)
}
