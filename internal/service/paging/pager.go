package paging

import (
	"context"

	"github.com/splax/teamboard/internal/domain"
)

// Default page sizes used when a pager is built with non-positive limits.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Collection adapts one entity type to the pager.
type Collection[T any] interface {
	// List returns the ordered slice selected by query.
	List(ctx context.Context, query domain.ListQuery) ([]T, error)
	// Get re-reads one entity. A missing entity returns domain.ErrNotFound.
	Get(ctx context.Context, id string) (T, error)
	// Key returns the sort key of an entity.
	Key(item T) domain.SortKey
	// Matches reports whether the entity belongs to the filtered set.
	Matches(item T, filter Filter) bool
	// Handles reports whether events of kind concern this collection.
	Handles(kind domain.ChangeKind) bool
}

// Page is one slice of a collection.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	Exhausted  bool   `json:"exhausted"`
}

// Pager issues pages of a collection.
type Pager[T any] struct {
	coll         Collection[T]
	defaultLimit int
	maxLimit     int
}

// NewPager returns a pager over coll.
func NewPager[T any](coll Collection[T], defaultLimit, maxLimit int) Pager[T] {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return Pager[T]{coll: coll, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Limit clamps a requested page size.
func (p Pager[T]) Limit(n int) int {
	switch {
	case n <= 0:
		return p.defaultLimit
	case n > p.maxLimit:
		return p.maxLimit
	}
	return n
}

// Page returns at most limit items after the cursor token. An empty token
// requests the first page.
func (p Pager[T]) Page(ctx context.Context, filter Filter, token string, limit int) (Page[T], error) {
	filter = filter.Normalize()
	var after *domain.SortKey
	if token != "" {
		cursor, err := DecodeCursor(token)
		if err != nil {
			return Page[T]{}, err
		}
		if err := cursor.Check(filter); err != nil {
			return Page[T]{}, err
		}
		after = &cursor.After
	}
	return p.fetch(ctx, filter, after, p.Limit(limit))
}

func (p Pager[T]) fetch(ctx context.Context, filter Filter, after *domain.SortKey, limit int) (Page[T], error) {
	items, err := p.coll.List(ctx, filter.Query(after, limit+1))
	if err != nil {
		return Page[T]{}, err
	}
	if len(items) <= limit {
		return Page[T]{Items: items, Exhausted: true}, nil
	}
	items = items[:limit]
	next := Cursor{
		After:       p.coll.Key(items[len(items)-1]),
		Fingerprint: filter.Fingerprint(),
		Direction:   filter.Direction(),
	}
	return Page[T]{Items: items, NextCursor: next.Encode()}, nil
}
