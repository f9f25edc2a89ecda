package controller

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid repeated events into one: the function passed
// to Trigger runs only after the quiescence window has elapsed since the
// last trigger. The search box uses it so the engine does not recompute
// on every keystroke.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// DefaultSearchDebounce is the quiescence window for search input.
const DefaultSearchDebounce = 300 * time.Millisecond

// NewDebouncer creates a debouncer with the given quiescence window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger schedules fn to run after the quiescence window, displacing any
// previously scheduled call that has not fired yet.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, fn)
}

// Stop cancels a pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
