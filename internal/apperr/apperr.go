// Package apperr defines the error taxonomy shared by the tracker packages.
//
// Pure computations (energy, ledger, weight) only ever fail with
// ErrInvalidInput or ErrOutOfRange. Anything that talks to the identity
// service or the document store may additionally fail with ErrNotFound or
// ErrBackendUnavailable.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks malformed or out-of-range numeric fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a lookup of a document or entry that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable marks a transient identity or store failure.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrConflict is reserved for concurrent-edit detection. Nothing returns it yet.
	ErrConflict = errors.New("conflict")
)

// RangeError reports a value outside its inclusive [Min, Max] bounds.
// It matches both ErrOutOfRange and ErrInvalidInput with errors.Is.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

// ErrOutOfRange is the sentinel matched by every *RangeError.
var ErrOutOfRange = errors.New("out of range")

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g out of range [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// Is lets errors.Is match the sentinel taxonomy.
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange || target == ErrInvalidInput
}

// CheckRange returns a *RangeError when v is outside [min, max].
func CheckRange(field string, v, min, max float64) error {
	if v < min || v > max || v != v {
		return &RangeError{Field: field, Value: v, Min: min, Max: max}
	}
	return nil
}

// Invalid wraps a formatted message with ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Unavailable wraps err with ErrBackendUnavailable, keeping the cause in the chain.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}
