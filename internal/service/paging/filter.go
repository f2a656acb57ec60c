// Package paging serves ordered, filtered slices of a scoped collection
// through opaque cursors and keeps loaded windows fresh as writes land.
package paging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/splax/teamboard/internal/domain"
)

const (
	directionAsc  = "asc"
	directionDesc = "desc"
)

// Filter selects a subset of a scoped collection. Scope is the project id
// for tasks and the team id for parts.
type Filter struct {
	Scope      string `json:"scope"`
	Status     string `json:"status"`
	Search     string `json:"search"`
	Category   string `json:"category"`
	Descending bool   `json:"descending"`
}

// Normalize trims every field and lower-cases the search needle, so filters
// that select the same rows compare equal.
func (f Filter) Normalize() Filter {
	return Filter{
		Scope:      strings.TrimSpace(f.Scope),
		Status:     strings.TrimSpace(f.Status),
		Search:     strings.ToLower(strings.TrimSpace(f.Search)),
		Category:   strings.TrimSpace(f.Category),
		Descending: f.Descending,
	}
}

// Fingerprint identifies the normalized filter. Cursors carry it so they
// cannot be replayed against another filter.
func (f Filter) Fingerprint() string {
	canonical, _ := json.Marshal(f.Normalize())
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16]
}

// Direction names the sort direction.
func (f Filter) Direction() string {
	if f.Descending {
		return directionDesc
	}
	return directionAsc
}

// Query converts the filter into a storage query.
func (f Filter) Query(after *domain.SortKey, limit int) domain.ListQuery {
	return domain.ListQuery{
		Scope:      f.Scope,
		Status:     f.Status,
		Search:     f.Search,
		Category:   f.Category,
		After:      after,
		Descending: f.Descending,
		Limit:      limit,
	}
}

// Precedes reports whether key sorts at or before boundary in the filter's
// direction.
func (f Filter) Precedes(key, boundary domain.SortKey) bool {
	if f.Descending {
		return key.Compare(boundary) >= 0
	}
	return key.Compare(boundary) <= 0
}
