package watch

import (
	"sync"
	"time"
)

// Debouncer gates change notifications so that at most one is accepted per
// interval. The first change of a burst is accepted immediately; every
// further change arriving within interval of it is discarded.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	last     time.Time
	now      func() time.Time
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether a change observed now starts a new episode. When it
// does, the acceptance time is recorded.
func (d *Debouncer) Allow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !d.readyLocked(now) {
		return false
	}

	d.last = now

	return true
}

// Ready reports whether Allow would currently succeed without recording
// anything.
func (d *Debouncer) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.readyLocked(d.now())
}

func (d *Debouncer) readyLocked(now time.Time) bool {
	return d.last.IsZero() || now.Sub(d.last) >= d.interval
}
