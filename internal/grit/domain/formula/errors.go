package formula

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid formula input")
	ErrInvalidConfig = errors.New("invalid formula config")
)

// InputError reports which input was outside its documented domain.
type InputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrInvalidInput, e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field string, value float64, reason string) error {
	return &InputError{Field: field, Value: value, Reason: reason}
}
