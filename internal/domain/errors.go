package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Service errors wrap exactly one of these so the transport
// layer can map them without knowing every specific error.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// ValidationError names the offending field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
