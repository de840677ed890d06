package domain

import (
	"errors"
	"fmt"
)

// ErrNotImplemented marks a declared but unimplemented operation. It must
// surface loudly rather than degrade into an empty result.
var ErrNotImplemented = errors.New("not implemented")

// ErrSchemaMismatch marks a structured-generation payload that did not
// decode into the requested shape.
var ErrSchemaMismatch = errors.New("generated output does not match schema")

// ValidationError reports a missing or empty required pipeline input.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
