package seating

import (
	"fmt"

	"github.com/kirinyoku/inn-go/internal/domain"
)

var (
	ErrPoolNotFound         = fmt.Errorf("seat pool %w", domain.ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("registration %w", domain.ErrNotFound)

	ErrSoldOut        = fmt.Errorf("%w: no seats available", domain.ErrConflict)
	ErrDuplicateEmail = fmt.Errorf("%w: email already registered", domain.ErrConflict)

	ErrInvalidSignature = fmt.Errorf("%w: invalid payment signature", domain.ErrInvalidRequest)
	ErrNotPending       = fmt.Errorf("%w: registration is not pending", domain.ErrInvalidRequest)
	ErrNotCancellable   = fmt.Errorf("%w: registration cannot be cancelled", domain.ErrInvalidRequest)
	ErrNotApprovable    = fmt.Errorf("%w: registration cannot be approved", domain.ErrInvalidRequest)
	ErrNotRejectable    = fmt.Errorf("%w: registration cannot be rejected", domain.ErrInvalidRequest)
)
