package optics

import (
	"errors"
	"fmt"
)

var (
	ErrDomain      = errors.New("singular or non-physical configuration")
	ErrValidation  = errors.New("invalid input")
	ErrConvergence = errors.New("search did not converge")
)

// DomainError reports a configuration at which a relation is undefined,
// e.g. unit magnification or an object placed at the focal point.
type DomainError struct {
	Op     string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *DomainError) Is(target error) bool {
	return target == ErrDomain
}

// ValidationError reports a physical input outside its admissible range.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s = %g: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConvergenceError is returned by iterative searches that ran out of budget
// or could not bracket a root. Density and Residual hold the last estimate.
type ConvergenceError struct {
	Iterations int
	Density    float64
	Residual   float64
	Reason     string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d iterations (last density %g, residual %g)", e.Reason, e.Iterations, e.Density, e.Residual)
}

func (e *ConvergenceError) Is(target error) bool {
	return target == ErrConvergence
}

func domain(op, reason string) error {
	return &DomainError{Op: op, Reason: reason}
}

// Positive returns a ValidationError unless v > 0.
func Positive(field string, v float64) error {
	if !(v > 0) || isInf(v) {
		return &ValidationError{Field: field, Value: v, Reason: "must be positive and finite"}
	}
	return nil
}

// NonNegative returns a ValidationError unless v >= 0.
func NonNegative(field string, v float64) error {
	if !(v >= 0) || isInf(v) {
		return &ValidationError{Field: field, Value: v, Reason: "must be non-negative and finite"}
	}
	return nil
}

// Fraction returns a ValidationError unless 0 <= v <= 1.
func Fraction(field string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return &ValidationError{Field: field, Value: v, Reason: "must lie in [0, 1]"}
	}
	return nil
}
