package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Record and list errors
	ErrNotFound           = fmt.Errorf("not found")
	ErrInvariantViolation = fmt.Errorf("invariant violation")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// NotFound wraps [ErrNotFound] with the kind and identity of the missing record.
func NotFound(kind string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
}

// Invariant wraps [ErrInvariantViolation] with a formatted description.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// IsInvariant reports whether err is an [ErrInvariantViolation].
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
