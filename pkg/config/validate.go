package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/constraints"
)

// ConfigValidator runs fluent checks against one config section and
// accumulates every violation instead of stopping at the first.
type ConfigValidator struct {
	name   string
	errors []error
}

// NewConfigValidator starts a check chain for the named section.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

// failf records a violation for the given field.
func (cv *ConfigValidator) failf(field, format string, args ...any) *ConfigValidator {
	cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %s", cv.name, field, fmt.Sprintf(format, args...)))
	return cv
}

// Required fails when a string field is empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value != "" {
		return cv
	}
	return cv.failf(field, "required field is empty")
}

// RangeInt fails when value falls outside [min, max].
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if min <= value && value <= max {
		return cv
	}
	return cv.failf(field, "value %d is outside range [%d, %d]", value, min, max)
}

// Positive fails on zero or negative values.
func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value > 0 {
		return cv
	}
	return cv.failf(field, "value %d must be positive", value)
}

// NonNegative fails on negative values.
func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value >= 0 {
		return cv
	}
	return cv.failf(field, "value %d must be non-negative", value)
}

// MinDuration fails when the duration is shorter than min.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value >= min {
		return cv
	}
	return cv.failf(field, "duration %v is below minimum %v", value, min)
}

// MaxDuration fails when the duration is longer than max.
func (cv *ConfigValidator) MaxDuration(field string, value, max time.Duration) *ConfigValidator {
	if value <= max {
		return cv
	}
	return cv.failf(field, "duration %v exceeds maximum %v", value, max)
}

// RangeDuration fails when the duration falls outside [min, max].
func (cv *ConfigValidator) RangeDuration(field string, value, min, max time.Duration) *ConfigValidator {
	if min <= value && value <= max {
		return cv
	}
	return cv.failf(field, "duration %v is outside range [%v, %v]", value, min, max)
}

// OneOf fails when value is not among the allowed strings.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if slices.Contains(allowed, value) {
		return cv
	}
	return cv.failf(field, "value %q must be one of %v", value, allowed)
}

// Custom records the error a caller-supplied check returns, keeping the
// original error in the chain for errors.Is.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errors = append(cv.errors, fmt.Errorf("%s.%s: %w", cv.name, field, err))
	}
	return cv
}

// When applies the grouped checks only if condition holds.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors reports whether any check failed.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errors) > 0
}

// Error returns the first recorded violation, nil when clean.
func (cv *ConfigValidator) Error() error {
	if !cv.HasErrors() {
		return nil
	}
	return cv.errors[0]
}

// Errors returns every recorded violation.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate collapses the chain into a single error: nil when clean, the
// violation itself when there is exactly one, a counting summary otherwise.
func (cv *ConfigValidator) Validate() error {
	switch len(cv.errors) {
	case 0:
		return nil
	case 1:
		return cv.errors[0]
	default:
		return fmt.Errorf("%s validation failed with %d errors, first: %w", cv.name, len(cv.errors), cv.errors[0])
	}
}

// Validatable is implemented by config sections that check themselves.
type Validatable interface {
	Validate() error
}

// ValidateConfig runs a section's self-check with a nil guard.
func ValidateConfig(config Validatable) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}
	return config.Validate()
}

// DefaultOr substitutes defaultValue when value is the zero value.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}

// DefaultOrPositive substitutes defaultValue when value is zero or
// negative. Works for any ordered numeric type, including durations.
func DefaultOrPositive[T constraints.Ordered](value, defaultValue T) T {
	var zero T
	if value <= zero {
		return defaultValue
	}
	return value
}

// Clamp restricts a value to the range [min, max].
func Clamp[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// structTags checks the `validate:` struct tags on configuration types.
var structTags = validator.New()

// validateTags runs the struct-tag validator and rewrites its errors into
// the same field-prefixed format the fluent checks use.
func validateTags(cfg any) error {
	err := structTags.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, e.Param())
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
