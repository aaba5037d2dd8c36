package value

import (
	"errors"
	"fmt"
)

// ErrValidation is the sentinel matched by every ValidationError.
var ErrValidation = errors.New("value: validation failed")

// ValidationError reports a field that failed validation at construction time.
type ValidationError struct {
	Field  string
	Reason string
}

// Invalid returns a *ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("value: %q %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
