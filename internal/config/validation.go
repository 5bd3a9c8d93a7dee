package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors so that startup reports all of
// them instead of the first one.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates an empty validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]ValidationError, 0)}
}

// AddError records a validation error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// ValidationErrors is returned by Config.Validate and lists every failed
// check in the order it was found.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d error(s):\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Err returns the collected errors as ValidationErrors, or nil if every
// check passed.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationErrors(append([]ValidationError(nil), v.errors...))
}

// ValidateRequired fails on an empty string.
func (v *Validator) ValidateRequired(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "required value not set")
	}
}

// ValidatePort checks the TCP port range.
func (v *Validator) ValidatePort(field string, port int) {
	if port < 1 || port > 65535 {
		v.AddError(field, fmt.Sprintf("port must be between 1 and 65535 (got %d)", port))
	}
}

// ValidatePositive fails on zero or negative values.
func (v *Validator) ValidatePositive(field string, n int64) {
	if n <= 0 {
		v.AddError(field, fmt.Sprintf("must be a positive integer (got %d)", n))
	}
}

// ValidatePositiveDuration fails on zero or negative durations.
func (v *Validator) ValidatePositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("must be a positive duration (got %s)", d))
	}
}

// ValidateEnum checks that value is one of allowed.
func (v *Validator) ValidateEnum(field, value string, allowed []string) {
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}
