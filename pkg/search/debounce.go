// SPDX-License-Identifier: GPL-3.0-only
package search

import (
	"sync"
	"time"

	"github.com/herokl/k8s-log-viewer/pkg/log"
)

// DefaultDelay is the quiet period after the last keystroke before a search runs.
const DefaultDelay = 300 * time.Millisecond

// Debouncer coalesces bursts of keyword changes: only the keyword submitted
// last runs, once, after the delay has elapsed without another submission.
type Debouncer struct {
	mu      sync.Mutex
	fn      func(keyword string)
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer returns a Debouncer that calls fn with the winning keyword.
// fn runs on a timer goroutine.
func NewDebouncer(fn func(keyword string)) *Debouncer {
	return &Debouncer{fn: fn}
}

// Schedule replaces any pending keyword with keyword and restarts the delay.
func (d *Debouncer) Schedule(keyword string, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(delay, func() { d.fire(gen, keyword) })
}

func (d *Debouncer) fire(gen uint64, keyword string) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		// superseded between the timer firing and acquiring the lock
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	log.Trace("search: debounced keyword %q", keyword)
	d.fn(keyword)
}

// Cancel drops the pending keyword, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a keyword is waiting for its delay to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending keyword and ignores later submissions.
func (d *Debouncer) Stop() {
	d.Cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
