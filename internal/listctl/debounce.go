package listctl

import (
	"sync"
	"time"

	"github.com/wesm/catalogview/internal/clock"
)

// DefaultDebounceWait is the quiet window that coalesces filter edits.
const DefaultDebounceWait = 1000 * time.Millisecond

// Debouncer is a trailing-edge coalescing queue. Schedule stores the
// latest payload and re-arms the timer; when the window elapses with no
// further Schedule the payload is flushed exactly once.
//
// The queue owns its busy flag: busy from the first Schedule of a burst
// until no timer is armed and every flushed payload has reported done.
// Overlapping bursts keep the flag raised continuously.
type Debouncer[P any] struct {
	clock clock.Clock
	wait  time.Duration
	// flush starts work for p and must call done exactly once when
	// that work settles.
	flush  func(p P, done func())
	onBusy func(busy bool)

	mu       sync.Mutex
	timer    *clock.Timer
	gen      uint64 // bumped on every Schedule; stale timer callbacks compare against it
	armed    bool
	pending  P
	inflight int
	busy     bool
	closed   bool
}

// NewDebouncer creates a queue that calls flush after wait of quiet.
// onBusy, if non-nil, observes busy flag transitions; it is called with
// the queue lock held and must not call back into the Debouncer.
func NewDebouncer[P any](c clock.Clock, wait time.Duration, flush func(p P, done func()), onBusy func(bool)) *Debouncer[P] {
	if c == nil {
		c = clock.Real()
	}
	if wait <= 0 {
		wait = DefaultDebounceWait
	}
	return &Debouncer[P]{
		clock:  c,
		wait:   wait,
		flush:  flush,
		onBusy: onBusy,
	}
}

// Schedule replaces the pending payload and restarts the quiet window.
func (d *Debouncer[P]) Schedule(p P) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = p
	d.armed = true
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(gen) })
	d.updateBusyLocked()
}

// Flush fires the pending payload now instead of waiting for the quiet
// window. It reports whether anything was pending.
func (d *Debouncer[P]) Flush() bool {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	armed := d.armed
	gen := d.gen
	d.mu.Unlock()
	if !armed {
		return false
	}
	d.fire(gen)
	return true
}

// Pending reports whether a payload is waiting for its window to elapse.
func (d *Debouncer[P]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Busy reports the current busy flag.
func (d *Debouncer[P]) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Close drops any pending payload. Flushed work still reports done.
func (d *Debouncer[P]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = false
	var zero P
	d.pending = zero
	d.updateBusyLocked()
}

func (d *Debouncer[P]) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || !d.armed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	p := d.pending
	var zero P
	d.pending = zero
	d.armed = false
	d.timer = nil
	d.inflight++
	d.mu.Unlock()

	var once sync.Once
	d.flush(p, func() { once.Do(d.done) })
}

func (d *Debouncer[P]) done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight > 0 {
		d.inflight--
	}
	d.updateBusyLocked()
}

func (d *Debouncer[P]) updateBusyLocked() {
	busy := d.armed || d.inflight > 0
	if busy == d.busy {
		return
	}
	d.busy = busy
	if d.onBusy != nil {
		d.onBusy(busy)
	}
}
