package admin

import (
	"fmt"

	"github.com/kirinyoku/inn-go/internal/domain"
)

var (
	ErrCategoryNotFound = fmt.Errorf("category %w", domain.ErrNotFound)
	ErrRoomNotFound     = fmt.Errorf("room %w", domain.ErrNotFound)

	ErrCategoryConflict = fmt.Errorf("%w: category already exists", domain.ErrConflict)
	ErrRoomConflict     = fmt.Errorf("%w: room number already exists in category", domain.ErrConflict)
	ErrCannotShrink     = fmt.Errorf("%w: cannot reduce room count, rooms are occupied or out of service", domain.ErrConflict)
	ErrCategoryInUse    = fmt.Errorf("%w: category has active reservations", domain.ErrConflict)
	ErrRoomInUse        = fmt.Errorf("%w: room has active reservations", domain.ErrConflict)
)
