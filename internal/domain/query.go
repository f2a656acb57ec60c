package domain

import (
	"strings"
	"time"
)

// SortKey orders paginated collections: creation time, then id.
type SortKey struct {
	CreatedAt time.Time
	ID        string
}

// Compare returns -1, 0 or 1 ordering k against other.
func (k SortKey) Compare(other SortKey) int {
	switch {
	case k.CreatedAt.Before(other.CreatedAt):
		return -1
	case k.CreatedAt.After(other.CreatedAt):
		return 1
	}
	return strings.Compare(k.ID, other.ID)
}

// ListQuery selects an ordered slice of a scoped collection. Scope is the
// owning project for tasks and the owning team for parts.
type ListQuery struct {
	Scope      string
	Status     string
	Search     string
	Category   string
	After      *SortKey
	Descending bool
	Limit      int
}

// StorageTime normalises timestamps to the microsecond precision the store keeps.
func StorageTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
