package listview

import (
	"context"
	"sync"

	"mlboard/internal/core/domain"
)

const defaultPageSize = 10

// Query is everything a single fetch is issued with.
type Query struct {
	SortColumn     string
	SortDescending bool
	PageIndex      int
	PageSize       int
	Filter         string
	Extra          any
}

// Paginator converts the query into the API paginator filter.
func (q Query) Paginator() *domain.PaginatorFilter {
	return domain.NewPaginatorFilter(q.SortColumn, q.SortDescending, q.PageIndex, q.PageSize)
}

// Fetcher loads one page. It must honour ctx cancellation.
type Fetcher[T any] func(ctx context.Context, q Query) (*domain.Page[T], error)

type Options struct {
	// DefaultDescending is the sort direction used while the sort control
	// has none.
	DefaultDescending bool
	DefaultPageSize   int
	// Extra is passed through to every query as entity-specific filter fields.
	Extra any
}

func DefaultOptions() Options {
	return Options{
		DefaultDescending: true,
		DefaultPageSize:   defaultPageSize,
	}
}

// Snapshot is a consistent copy of the view state.
type Snapshot[T any] struct {
	Rows       []T    `json:"rows"`
	Total      int    `json:"total"`
	PageIndex  int    `json:"page_index"`
	PageSize   int    `json:"page_size"`
	Sort       Sort   `json:"sort"`
	Filter     string `json:"filter"`
	Loading    bool   `json:"loading"`
	Generation uint64 `json:"generation"`
}

type triggerKind int

const (
	triggerSort triggerKind = iota
	triggerPage
	triggerFilter
)

type trigger struct {
	kind      triggerKind
	column    string
	direction Direction
	index     int
	size      int
	text      string
}

type result[T any] struct {
	gen  uint64
	page *domain.Page[T]
	err  error
}

// View keeps a table in sync with its sort control, paginator and filter.
// Every trigger dispatches a new fetch and cancels the one in flight; only the
// most recently dispatched fetch is ever applied to the data source.
type View[T any] struct {
	fetch Fetcher[T]
	opts  Options

	triggers chan trigger
	results  chan result[T]
	updates  chan struct{}
	done     chan struct{}

	mu        sync.RWMutex
	source    DataSource[T]
	sort      Sort
	paginator Paginator
	loading   bool
	gen       uint64
	started   bool
	closed    bool
	stop      context.CancelFunc
}

func New[T any](fetch Fetcher[T], opts Options) *View[T] {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = defaultPageSize
	}
	return &View[T]{
		fetch:    fetch,
		opts:     opts,
		triggers: make(chan trigger, 16),
		results:  make(chan result[T]),
		updates:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		source:   DataSource[T]{Data: []T{}},
	}
}

// Start runs the view until ctx is cancelled or Close is called. The first
// fetch is dispatched immediately with default parameters, or with whatever
// triggers arrived before Start.
func (v *View[T]) Start(ctx context.Context) {
	v.mu.Lock()
	if v.started || v.closed {
		v.mu.Unlock()
		return
	}
	v.started = true
	ctx, v.stop = context.WithCancel(ctx)
	v.mu.Unlock()

	go v.run(ctx)
}

// Close stops listening to triggers and cancels the fetch in flight.
func (v *View[T]) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	started := v.started
	if v.stop != nil {
		v.stop()
	}
	v.mu.Unlock()

	if !started {
		close(v.done)
		return
	}
	<-v.done
}

// Done is closed once the view has stopped.
func (v *View[T]) Done() <-chan struct{} {
	return v.done
}

// Updates signals after every state change. Signals coalesce; read Snapshot
// for the current state.
func (v *View[T]) Updates() <-chan struct{} {
	return v.updates
}

// SortChange sets the sort column and direction and returns to the first page.
func (v *View[T]) SortChange(column string, direction Direction) {
	v.send(trigger{kind: triggerSort, column: column, direction: direction})
}

// PageChange moves to page index with the given size. A non-positive size
// keeps the current one.
func (v *View[T]) PageChange(index, size int) {
	v.send(trigger{kind: triggerPage, index: index, size: size})
}

// ApplyFilter stores the filter text, returns to the first page and
// re-fetches. The text is passed through to the service untouched.
func (v *View[T]) ApplyFilter(text string) {
	v.send(trigger{kind: triggerFilter, text: text})
}

// send hands t to the loop. Before Start the state is updated in place and
// the seed fetch picks it up, so callers never block on an idle view.
func (v *View[T]) send(t trigger) {
	v.mu.Lock()
	if !v.started {
		if !v.closed {
			v.applyLocked(t)
		}
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()

	select {
	case v.triggers <- t:
	case <-v.done:
	}
}

func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()

	rows := make([]T, len(v.source.Data))
	copy(rows, v.source.Data)
	return Snapshot[T]{
		Rows:       rows,
		Total:      v.paginator.Length,
		PageIndex:  v.paginator.PageIndex,
		PageSize:   v.paginator.Size(v.opts.DefaultPageSize),
		Sort:       v.sort,
		Filter:     v.source.Filter,
		Loading:    v.loading,
		Generation: v.gen,
	}
}

func (v *View[T]) run(ctx context.Context) {
	defer close(v.done)

	cancel := v.dispatch(ctx, nil)
	defer func() { cancel() }()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-v.triggers:
			v.apply(t)
			cancel = v.dispatch(ctx, cancel)
		case r := <-v.results:
			v.resolve(r)
		}
	}
}

func (v *View[T]) apply(t trigger) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.applyLocked(t)
}

func (v *View[T]) applyLocked(t trigger) {
	switch t.kind {
	case triggerSort:
		v.sort = Sort{Active: t.column, Direction: t.direction}
		v.paginator.PageIndex = 0
	case triggerPage:
		if t.index < 0 {
			t.index = 0
		}
		v.paginator.PageIndex = t.index
		if t.size > 0 {
			v.paginator.PageSize = t.size
		}
	case triggerFilter:
		v.source.Filter = t.text
		v.paginator.PageIndex = 0
	}
}

// dispatch cancels the previous fetch and starts a new one for the current
// state. It returns the cancel func of the new fetch.
func (v *View[T]) dispatch(ctx context.Context, prev context.CancelFunc) context.CancelFunc {
	if prev != nil {
		prev()
	}
	fetchCtx, cancel := context.WithCancel(ctx)

	v.mu.Lock()
	v.gen++
	gen := v.gen
	q := Query{
		SortColumn:     v.sort.Active,
		SortDescending: v.sort.Descending(v.opts.DefaultDescending),
		PageIndex:      v.paginator.PageIndex,
		PageSize:       v.paginator.Size(v.opts.DefaultPageSize),
		Filter:         v.source.Filter,
		Extra:          v.opts.Extra,
	}
	v.loading = true
	v.mu.Unlock()
	v.notify()

	go func() {
		page, err := v.fetch(fetchCtx, q)
		select {
		case v.results <- result[T]{gen: gen, page: page, err: err}:
		case <-ctx.Done():
		}
	}()
	return cancel
}

func (v *View[T]) resolve(r result[T]) {
	v.mu.Lock()
	if r.gen != v.gen {
		v.mu.Unlock()
		return
	}
	if r.err != nil || r.page == nil {
		v.source.Data = []T{}
		v.paginator.Length = 0
	} else {
		v.source.Data = r.page.Data
		if v.source.Data == nil {
			v.source.Data = []T{}
		}
		v.paginator.Length = r.page.Total
	}
	v.loading = false
	v.mu.Unlock()
	v.notify()
}

func (v *View[T]) notify() {
	select {
	case v.updates <- struct{}{}:
	default:
	}
}
