package repository

import (
	"fmt"

	"github.com/splax/teamboard/internal/domain"
)

// ErrNotFound indicates an entity was not located. It matches
// domain.ErrNotFound under errors.Is.
var ErrNotFound = fmt.Errorf("repository: %w", domain.ErrNotFound)

// ErrInvalidArgument indicates the store rejected a value (constraint or type
// violation). It matches domain.ErrInvalidInput under errors.Is.
var ErrInvalidArgument = fmt.Errorf("repository: %w", domain.ErrInvalidInput)
