package search

import (
	"sync"
	"time"
)

// Debouncer delays a call until no new call has arrived for the configured
// duration. Rapid successive calls reset the timer.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
	}
}

// Debounce schedules fn after the debounce duration. It reports whether a
// pending call was dropped in the process; a dropped fn never runs.
func (d *Debouncer) Debounce(fn func()) (dropped bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		dropped = d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
	return dropped
}

// Cancel drops any pending call and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	dropped := d.timer.Stop()
	d.timer = nil
	return dropped
}
