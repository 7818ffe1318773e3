package query

import (
	"fmt"

	"github.com/kirinyoku/inn-go/internal/domain"
)

var ErrCategoryNotFound = fmt.Errorf("category %w", domain.ErrNotFound)
