// Package pager implements incremental, deduplicated page loading and
// selection stabilization for the dashboard's list endpoints. One Loader
// owns one accumulated collection; loaders are never shared between
// independent lists, even ones hitting the same endpoint.
package pager

import (
	"context"
	"log/slog"
	"sync"
)

// Item is anything addressable by a stable identifier.
type Item interface {
	Key() string
}

// Page is one server page of items, in server order.
type Page[T Item] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

// FetchFunc retrieves one page from the server.
type FetchFunc[T Item] func(ctx context.Context, page, pageSize int) (Page[T], error)

// loaderState is the explicit request state machine. Exactly one page
// request may be in flight per loader.
type loaderState int

const (
	stateIdle loaderState = iota
	stateInFlight
)

// Loader drives page-by-page retrieval and merges results into an ordered,
// duplicate-free accumulated collection. While a request is in flight,
// further LoadPage calls are dropped without side effects — callers wanting
// more data re-invoke after the in-flight call resolves.
type Loader[T Item] struct {
	fetch  FetchFunc[T]
	logger *slog.Logger

	mu       sync.Mutex
	state    loaderState
	items    []T
	seen     map[string]struct{}
	total    int
	page     int
	pageSize int
	loaded   bool
	gen      uint64 // bumped by Reset so stale in-flight results are dropped
}

// NewLoader creates a loader with the given page size. The server may
// normalize the size; the echoed value is adopted for subsequent requests.
func NewLoader[T Item](fetch FetchFunc[T], pageSize int, logger *slog.Logger) *Loader[T] {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader[T]{
		fetch:    fetch,
		logger:   logger,
		pageSize: pageSize,
		seen:     make(map[string]struct{}),
	}
}

// LoadPage fetches the given page and merges it into the accumulated
// collection. A call while another is in flight is a no-op. Loading page 1
// is additive like any other page — discarding state requires an explicit
// Reset first.
func (l *Loader[T]) LoadPage(ctx context.Context, page int) error {
	l.mu.Lock()
	if l.state == stateInFlight {
		l.mu.Unlock()
		l.logger.Debug("page request already in flight, dropping", slog.Int("page", page))

		return nil
	}

	l.state = stateInFlight
	size := l.pageSize
	gen := l.gen
	l.mu.Unlock()

	pg, err := l.fetch(ctx, page, size)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = stateIdle

	if err != nil {
		return err
	}

	if l.gen != gen {
		// Reset raced the fetch; the result belongs to the old collection.
		l.logger.Debug("dropping stale page from before reset", slog.Int("page", pg.Page))

		return nil
	}

	l.merge(pg)

	return nil
}

// LoadNext fetches the page after the highest merged one (page 1 when
// nothing has loaded). This is the infinite-scroll entry point.
func (l *Loader[T]) LoadNext(ctx context.Context) error {
	l.mu.Lock()
	next := l.page + 1
	if !l.loaded {
		next = 1
	}
	l.mu.Unlock()

	return l.LoadPage(ctx, next)
}

// merge appends new items, dropping any whose identifier is already
// accumulated. First occurrence wins; order is preserved, the later
// duplicate is discarded rather than moved. Caller holds l.mu.
func (l *Loader[T]) merge(pg Page[T]) {
	added := 0

	for _, it := range pg.Items {
		key := it.Key()
		if _, dup := l.seen[key]; dup {
			continue
		}

		l.seen[key] = struct{}{}
		l.items = append(l.items, it)
		added++
	}

	l.total = pg.Total
	l.loaded = true

	if pg.Page > l.page {
		l.page = pg.Page
	}

	if pg.PageSize > 0 {
		l.pageSize = pg.PageSize
	}

	l.logger.Debug("merged page",
		slog.Int("page", pg.Page),
		slog.Int("received", len(pg.Items)),
		slog.Int("added", added),
		slog.Int("accumulated", len(l.items)),
		slog.Int("total", pg.Total),
	)
}

// Reset discards the accumulated collection so the next LoadPage starts
// fresh (filter changes). Any in-flight result is dropped on arrival.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	l.items = nil
	l.seen = make(map[string]struct{})
	l.total = 0
	l.page = 0
	l.loaded = false
}

// Items returns a copy of the accumulated collection in first-seen order.
func (l *Loader[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]T, len(l.items))
	copy(out, l.items)

	return out
}

// Total returns the server-reported total for the logical list.
func (l *Loader[T]) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.total
}

// CurrentPage returns the highest merged page number, 0 before any load.
func (l *Loader[T]) CurrentPage() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.page
}

// PageSize returns the effective page size, including any server
// normalization adopted from responses.
func (l *Loader[T]) PageSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pageSize
}

// HasMore reports whether further pages exist. Optimistically true before
// the first page; afterwards, accumulated < total.
func (l *Loader[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		return true
	}

	return len(l.items) < l.total
}
