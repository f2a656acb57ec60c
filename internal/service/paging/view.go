package paging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/splax/teamboard/internal/domain"
)

// LoadState is derived from a view for the client's loading indicator.
type LoadState string

const (
	StateLoadingFirstPage LoadState = "loadingFirstPage"
	StateCanLoadMore      LoadState = "canLoadMore"
	StateExhausted        LoadState = "exhausted"
)

// Source delivers change events for one scope.
type Source interface {
	C() <-chan domain.ChangeEvent
	Lagged() bool
}

// Guard re-checks that the viewer may still read the view's scope. It is
// consulted before every page load and every applied change.
type Guard func(ctx context.Context) error

// View is a live window over a filtered collection. Pages are pulled with
// LoadMore; the loaded window is kept current by Apply. Items past the
// boundary of the last loaded page only arrive through LoadMore. An
// exhausted view has no boundary.
type View[T any] struct {
	mu        sync.Mutex
	pager     Pager[T]
	guard     Guard
	filter    Filter
	pageSize  int
	items     []T
	boundary  *domain.SortKey
	loaded    bool
	exhausted bool
	pages     int
	err       error
}

// Open returns an empty view. Call LoadMore to fetch the first page.
func (p Pager[T]) Open(filter Filter, pageSize int) *View[T] {
	return &View[T]{
		pager:    p,
		filter:   filter.Normalize(),
		pageSize: p.Limit(pageSize),
	}
}

// Guarded installs the access check run before every load and change. A
// failing guard closes the view with the guard's error.
func (v *View[T]) Guarded(guard Guard) *View[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.guard = guard
	return v
}

// Filter returns the normalized filter of the view.
func (v *View[T]) Filter() Filter {
	return v.filter
}

// LoadMore fetches the page after the current boundary. It is a no-op on an
// exhausted view.
func (v *View[T]) LoadMore(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadMoreLocked(ctx)
}

func (v *View[T]) loadMoreLocked(ctx context.Context) error {
	if v.err != nil {
		return v.err
	}
	if v.loaded && v.exhausted {
		return nil
	}
	page, err := v.pager.fetch(ctx, v.filter, v.boundary, v.pageSize)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(v.items))
	for _, item := range v.items {
		seen[v.pager.coll.Key(item).ID] = struct{}{}
	}
	for _, item := range page.Items {
		if _, dup := seen[v.pager.coll.Key(item).ID]; !dup {
			v.items = append(v.items, item)
		}
	}
	v.loaded = true
	v.pages++
	v.exhausted = page.Exhausted
	if page.Exhausted {
		v.boundary = nil
	} else {
		key := v.pager.coll.Key(page.Items[len(page.Items)-1])
		v.boundary = &key
	}
	v.sortLocked()
	return nil
}

// Items returns a copy of the loaded window in sort order.
func (v *View[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]T(nil), v.items...)
}

// State derives the load state.
func (v *View[T]) State() LoadState {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case !v.loaded:
		return StateLoadingFirstPage
	case v.exhausted:
		return StateExhausted
	}
	return StateCanLoadMore
}

// NextCursor returns a cursor continuing after the loaded window, or "" when
// the view is exhausted or not loaded yet.
func (v *View[T]) NextCursor() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.boundary == nil {
		return ""
	}
	return Cursor{After: *v.boundary, Fingerprint: v.filter.Fingerprint(), Direction: v.filter.Direction()}.Encode()
}

// Err reports why the view stopped, such as its scope being deleted.
func (v *View[T]) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Apply folds one committed change into the window. Only the affected
// entity is re-read; the rest of the window is untouched. It reports
// whether the visible items changed.
func (v *View[T]) Apply(ctx context.Context, event domain.ChangeEvent) (bool, error) {
	if event.Scope != v.filter.Scope {
		return false, nil
	}
	if event.ScopeDeleted() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.err != nil {
			return false, nil
		}
		v.err = fmt.Errorf("%w: scope %s was deleted", domain.ErrInvalidCursor, event.Scope)
		v.items = nil
		v.boundary = nil
		return true, nil
	}
	if err := v.admit(ctx); err != nil {
		return v.Err() != nil, err
	}
	if !v.pager.coll.Handles(event.Kind) {
		return false, nil
	}

	item, err := v.pager.coll.Get(ctx, event.EntityID)
	present := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil || !v.loaded {
		return false, nil
	}
	changed := v.removeLocked(event.EntityID)
	if present && v.pager.coll.Matches(item, v.filter) {
		key := v.pager.coll.Key(item)
		if v.boundary == nil || v.filter.Precedes(key, *v.boundary) {
			v.items = append(v.items, item)
			v.sortLocked()
			changed = true
		}
	}
	return changed, nil
}

// Reload rebuilds the window with as many pages as were loaded before. It
// recovers from dropped change events.
func (v *View[T]) Reload(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return v.err
	}
	pages := v.pages
	if pages == 0 {
		pages = 1
	}
	v.items, v.boundary, v.loaded, v.exhausted, v.pages = nil, nil, false, false, 0
	for i := 0; i < pages; i++ {
		if err := v.loadMoreLocked(ctx); err != nil {
			return err
		}
		if v.exhausted {
			break
		}
	}
	return nil
}

// Watch applies events from src until ctx ends, the source closes, or the
// view is invalidated. notify runs after every visible change.
func (v *View[T]) Watch(ctx context.Context, src Source, notify func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-src.C():
			if !ok {
				return nil
			}
			var (
				changed bool
				err     error
			)
			if src.Lagged() && !event.ScopeDeleted() {
				err = v.Reload(ctx)
				changed = true
			} else {
				changed, err = v.Apply(ctx, event)
			}
			if err != nil {
				return err
			}
			if changed && notify != nil {
				notify()
			}
			if err := v.Err(); err != nil {
				return err
			}
		}
	}
}

// admit runs the guard. A caller who lost access leaves the view closed and
// emptied; other guard failures are returned without closing it.
func (v *View[T]) admit(ctx context.Context) error {
	v.mu.Lock()
	guard, err := v.guard, v.err
	v.mu.Unlock()
	if err != nil {
		return err
	}
	if guard == nil {
		return nil
	}
	if err := guard(ctx); err != nil {
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrForbidden) {
			return err
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.err == nil {
			v.err = err
			v.items = nil
			v.boundary = nil
		}
		return v.err
	}
	return nil
}

func (v *View[T]) removeLocked(id string) bool {
	for i, item := range v.items {
		if v.pager.coll.Key(item).ID == id {
			v.items = append(v.items[:i], v.items[i+1:]...)
			return true
		}
	}
	return false
}

func (v *View[T]) sortLocked() {
	sort.SliceStable(v.items, func(i, j int) bool {
		a, b := v.pager.coll.Key(v.items[i]), v.pager.coll.Key(v.items[j])
		if v.filter.Descending {
			return a.Compare(b) > 0
		}
		return a.Compare(b) < 0
	})
}
