// SPDX-License-Identifier: GPL-3.0-only
package session

import (
	"sync"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
)

// Sink renders the session buffer. All calls for one session are made from a
// single goroutine, in order.
type Sink interface {
	InsertText(offset int, text string)
	ApplyStyleRegion(offset, length int, styles []highlight.Tag)
	Clear()
	SelectRange(start, end int)
	ScrollToEnd()
}

// Batcher is implemented by sinks that want to apply a group of calls as
// one unit, such as one appended line with its styles.
type Batcher interface {
	Begin()
	Commit()
}

// Trimmer is implemented by sinks able to drop the head of their buffer.
// Only sessions writing to a Trimmer enforce a buffer bound.
type Trimmer interface {
	TrimFront(n int)
}

// Notifier is implemented by sinks that display session status.
type Notifier interface {
	StatusChanged(snap Snapshot)
}

type op func(Sink)

// dispatcher applies batches of sink operations on one goroutine. Enqueue
// never blocks.
type dispatcher struct {
	sink Sink

	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]op
	closed  bool
	stopped chan struct{}
}

func newDispatcher(sink Sink) *dispatcher {
	d := &dispatcher{sink: sink, stopped: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *dispatcher) enqueue(batch ...op) {
	if len(batch) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, batch)
	d.cond.Signal()
}

// sync blocks until every batch enqueued before the call has been applied.
func (d *dispatcher) sync() {
	done := make(chan struct{})
	d.enqueue(func(Sink) { close(done) })
	select {
	case <-done:
	case <-d.stopped:
	}
}

// close applies the remaining batches and stops the goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Signal()
	d.mu.Unlock()
	<-d.stopped
}

func (d *dispatcher) run() {
	defer close(d.stopped)
	batcher, _ := d.sink.(Batcher)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		pending := d.queue
		d.queue = nil
		d.mu.Unlock()

		for _, batch := range pending {
			if batcher != nil {
				batcher.Begin()
			}
			for _, apply := range batch {
				apply(d.sink)
			}
			if batcher != nil {
				batcher.Commit()
			}
		}
	}
}
