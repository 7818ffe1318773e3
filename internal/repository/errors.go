package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness or
	// exclusion constraint, or a conditional counter update did not apply.
	ErrConflict = errors.New("conflict")
)
