package reservation

import (
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/inn-go/internal/domain"
)

var (
	ErrReservationNotFound = fmt.Errorf("reservation %w", domain.ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", domain.ErrNotFound)
	ErrRoomNotFound        = fmt.Errorf("room %w", domain.ErrNotFound)

	ErrRoomUnavailable = fmt.Errorf("%w: room not available for selected dates", domain.ErrConflict)
	ErrCategoryClosed  = fmt.Errorf("%w: category is not accepting reservations", domain.ErrConflict)

	ErrIllegalTransition = fmt.Errorf("%w: illegal status transition", domain.ErrInvalidRequest)
	ErrRateLimited       = errors.New("rate limited")
)

type IllegalTransitionError struct {
	From domain.ReservationStatus
	To   domain.ReservationStatus
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
