// Package listctl drives asynchronous, filterable, paginated list views.
//
// A Controller owns one view's State. User intents go through the pure
// Reduce function; the controller then carries out the resulting
// effect: an immediate fetch for mount and pagination, or a debounced
// fetch for filter edits. Fetched pages land in a shared ResultStore.
package listctl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wesm/catalogview/internal/clock"
	"golang.org/x/sync/errgroup"
)

// Fetcher loads one page of T for a query. It may fail; the controller
// never retries.
type Fetcher[T any] func(ctx context.Context, q Query) (ResultSet[T], error)

// Preload loads side data a view needs alongside its first page, such
// as the reference records rows are enriched from.
type Preload func(ctx context.Context) error

// Options configures a Controller.
type Options struct {
	// Name identifies the view in logs and notifications (e.g. "orders").
	Name   string
	Schema Schema
	// Pagination is the initial page; a seed may override it.
	Pagination   Pagination
	DebounceWait time.Duration
	// DiscardStale drops a fetched page when a page from a later request
	// has already been applied. When false the last page to settle wins.
	DiscardStale bool
	Seed         *Seed
	Preloads     []Preload
	Clock        clock.Clock
	Logger       *slog.Logger
	Notifier     Notifier
}

// Controller is the state machine behind one list view. All state
// transitions are serialised through a single mutex; fetches run on
// their own goroutines and re-enter through the same path when they
// settle.
type Controller[T, R any] struct {
	name         string
	schema       Schema
	fetch        Fetcher[T]
	store        ResultStore[T]
	decorate     func(T) R
	preloads     []Preload
	discardStale bool
	notifier     Notifier
	logger       *slog.Logger
	debouncer    *Debouncer[Query]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	seq     uint64 // id of the last dispatched fetch
	applied uint64 // id of the fetch whose page is in the store
	closed  bool

	changes     chan struct{}
	unsubscribe func()
}

// New creates a controller for one list view. decorate turns a fetched
// record into a display row. If store is nil a private MemoryStore is
// used.
func New[T, R any](fetch Fetcher[T], store ResultStore[T], decorate func(T) R, opts Options) (*Controller[T, R], error) {
	if fetch == nil {
		return nil, fmt.Errorf("listctl: fetcher is required")
	}
	if decorate == nil {
		return nil, fmt.Errorf("listctl: decorate function is required")
	}
	if len(opts.Schema.fields) == 0 {
		return nil, fmt.Errorf("listctl: schema is required")
	}
	if store == nil {
		store = NewMemoryStore[T]()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Name == "" {
		opts.Name = "list"
	}

	state := InitialState(opts.Schema, opts.Pagination)
	if opts.Seed != nil {
		if opts.Seed.Filters != nil {
			state.Query.Filters = opts.Schema.Normalize(opts.Seed.Filters)
		}
		if opts.Seed.Pagination != nil {
			state.Query.Pagination = opts.Seed.Pagination.normalize(state.Query.Pagination.Limit)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller[T, R]{
		name:         opts.Name,
		schema:       opts.Schema,
		fetch:        fetch,
		store:        store,
		decorate:     decorate,
		preloads:     opts.Preloads,
		discardStale: opts.DiscardStale,
		notifier:     opts.Notifier,
		logger:       opts.Logger.With("view", opts.Name),
		ctx:          ctx,
		cancel:       cancel,
		state:        state,
		changes:      make(chan struct{}, 1),
	}
	c.debouncer = NewDebouncer(opts.Clock, opts.DebounceWait, c.flushFilters, func(busy bool) {
		c.apply(FilteringChanged{Active: busy})
	})

	storeChanges, unsubscribe := store.Subscribe()
	c.unsubscribe = unsubscribe
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-storeChanges:
				signal(c.changes)
			}
		}
	}()

	return c, nil
}

// Mount starts the initial fetch together with the preloads. Calling it
// again is a no-op.
func (c *Controller[T, R]) Mount() {
	eff := c.apply(Mount{})
	if eff.Kind != EffectFetch {
		return
	}
	seq, ok := c.begin()
	if !ok {
		c.apply(FetchSettled{})
		return
	}
	go func() {
		defer c.wg.Done()
		var g errgroup.Group
		g.Go(func() error {
			return c.load(seq, eff.Query)
		})
		for _, preload := range c.preloads {
			g.Go(func() error {
				if err := preload(c.ctx); err != nil {
					c.reportFailure("preload failed", err)
					return err
				}
				return nil
			})
		}
		_ = g.Wait()
		c.apply(FetchSettled{})
	}()
}

// SetFilterValue sets the active field's value and schedules a
// debounced fetch.
func (c *Controller[T, R]) SetFilterValue(v Value) {
	c.run(c.apply(SetFilterValue{Value: v}))
}

// SetFilterType switches the active filter field. It reports whether
// field exists in the schema.
func (c *Controller[T, R]) SetFilterType(field string) bool {
	c.apply(SetFilterType{Field: field})
	return c.schema.Has(field)
}

// RemoveFilterChip removes one chip and schedules a debounced fetch.
func (c *Controller[T, R]) RemoveFilterChip(field, value string) {
	c.run(c.apply(RemoveFilterChip{Field: field, Value: value}))
}

// ClearAllFilters resets every filter, rewinds to the first page and
// schedules a debounced fetch.
func (c *Controller[T, R]) ClearAllFilters() {
	c.run(c.apply(ClearAllFilters{}))
}

// Paginate fetches page p immediately.
func (c *Controller[T, R]) Paginate(p Pagination) {
	c.run(c.apply(Paginate{Pagination: p}))
}

// Refresh re-fetches the current page immediately.
func (c *Controller[T, R]) Refresh() {
	c.Paginate(c.State().Query.Pagination)
}

// NextPage moves one page forward if the last result has more records.
// An empty result has no next page.
func (c *Controller[T, R]) NextPage() bool {
	count := c.store.Get().Meta.Count
	p := c.State().Query.Pagination
	if p.Limit <= 0 || p.Offset+p.Limit >= count {
		return false
	}
	p.Offset += p.Limit
	c.Paginate(p)
	return true
}

// PrevPage moves one page back if not on the first page.
func (c *Controller[T, R]) PrevPage() bool {
	p := c.State().Query.Pagination
	if p.Offset == 0 {
		return false
	}
	p.Offset -= p.Limit
	if p.Offset < 0 {
		p.Offset = 0
	}
	c.Paginate(p)
	return true
}

// FlushFilters dispatches a pending debounced fetch without waiting for
// the quiet window.
func (c *Controller[T, R]) FlushFilters() bool {
	return c.debouncer.Flush()
}

// State returns a snapshot of the view state.
func (c *Controller[T, R]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Schema returns the filter schema.
func (c *Controller[T, R]) Schema() Schema {
	return c.schema
}

// Result returns the last applied page.
func (c *Controller[T, R]) Result() ResultSet[T] {
	return c.store.Get()
}

// Rows returns the display rows of the last applied page.
func (c *Controller[T, R]) Rows() []R {
	rs := c.store.Get()
	rows := make([]R, 0, len(rs.Items))
	for _, item := range rs.Items {
		rows = append(rows, c.decorate(item))
	}
	return rows
}

// Chips returns the active filter chips.
func (c *Controller[T, R]) Chips() []Chip {
	return ChipsFor(c.schema, c.State().Query.Filters)
}

// EmptyState selects the empty-list message for the current page.
func (c *Controller[T, R]) EmptyState() EmptyState {
	rs := c.store.Get()
	return SelectEmptyState(rs.Meta, len(rs.Items), c.State().Busy())
}

// Changes is signalled after every state transition and every store
// replacement. Signals coalesce.
func (c *Controller[T, R]) Changes() <-chan struct{} {
	return c.changes
}

// Wait blocks until every dispatched fetch has settled. It must not race
// with new intents.
func (c *Controller[T, R]) Wait() {
	c.wg.Wait()
}

// Close drops any pending debounced fetch, cancels in-flight fetches and
// waits for them to settle.
func (c *Controller[T, R]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.debouncer.Close()
	c.cancel()
	c.wg.Wait()
	c.unsubscribe()
}

// apply runs one transition and signals observers.
func (c *Controller[T, R]) apply(in Intent) Effect {
	c.mu.Lock()
	next, eff := Reduce(c.schema, c.state, in)
	c.state = next
	c.mu.Unlock()
	signal(c.changes)
	return eff
}

// run carries out an effect. Must be called without c.mu held.
func (c *Controller[T, R]) run(eff Effect) {
	switch eff.Kind {
	case EffectFetch:
		seq, ok := c.begin()
		if !ok {
			c.apply(FetchSettled{})
			return
		}
		go func() {
			defer c.wg.Done()
			_ = c.load(seq, eff.Query)
			c.apply(FetchSettled{})
		}()
	case EffectDebounce:
		c.debouncer.Schedule(eff.Query)
	}
}

// flushFilters is the debounce queue's flush hook. The page comes from
// the current state, which a Paginate during the quiet window may have
// moved.
func (c *Controller[T, R]) flushFilters(q Query, done func()) {
	q.Pagination = c.State().Query.Pagination
	seq, ok := c.begin()
	if !ok {
		done()
		return
	}
	go func() {
		defer c.wg.Done()
		defer done()
		_ = c.load(seq, q)
	}()
}

// begin allocates a fetch id and registers the fetch with the wait
// group. It fails once the controller is closed.
func (c *Controller[T, R]) begin() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, false
	}
	c.seq++
	c.wg.Add(1)
	return c.seq, true
}

// load fetches q and applies the page to the store.
func (c *Controller[T, R]) load(seq uint64, q Query) error {
	rs, err := c.fetch(c.ctx, q)
	if err != nil {
		if c.ctx.Err() != nil {
			return err
		}
		c.reportFailure(fmt.Sprintf("Failed to load %s", c.name), err)
		return err
	}
	if rs.Meta.Limit == 0 {
		rs.Meta.Limit = q.Pagination.Limit
		rs.Meta.Offset = q.Pagination.Offset
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.discardStale && seq < c.applied {
		c.logger.Debug("discarding stale page", "fetch", seq, "applied", c.applied)
		return nil
	}
	if seq > c.applied {
		c.applied = seq
	}
	c.store.Replace(rs)
	return nil
}

func (c *Controller[T, R]) reportFailure(title string, err error) {
	c.logger.Warn("list fetch failed", "error", err)
	c.notifier.Notify(Notification{
		Variant:     VariantDanger,
		Title:       title,
		Description: err.Error(),
	})
}
