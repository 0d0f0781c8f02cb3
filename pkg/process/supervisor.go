// SPDX-License-Identifier: GPL-3.0-only
package process

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/herokl/k8s-log-viewer/pkg/log"
)

// DefaultGracePeriod is how long a terminated process may take to exit
// before it is killed.
const DefaultGracePeriod = 2 * time.Second

// ErrSupervisorClosed is returned by Register after Shutdown.
var ErrSupervisorClosed = errors.New("process supervisor is shut down")

// Supervisor owns at most one current Handle. Registering a new handle
// retires the previous one: its consumer context is cancelled and its whole
// process tree is terminated before Register returns.
type Supervisor struct {
	mu      sync.Mutex
	current *Handle
	closed  bool

	tree  Tree
	grace time.Duration
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTree replaces the process tree used to find and signal descendants.
func WithTree(t Tree) Option {
	return func(s *Supervisor) { s.tree = t }
}

// WithGracePeriod sets the delay between terminate and kill.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) { s.grace = d }
}

func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{tree: SystemTree{}, grace: DefaultGracePeriod}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register makes h the current handle and tears down the previous one.
// Concurrent registrations are serialized. After Shutdown the handle is torn
// down immediately and ErrSupervisorClosed is returned.
func (s *Supervisor) Register(h *Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.teardown(h)
		return ErrSupervisorClosed
	}
	prev := s.current
	s.current = h
	log.Debug("process: registered %s", h)
	if prev != nil && prev != h {
		s.teardown(prev)
	}
	return nil
}

// Current returns the current handle, or nil.
func (s *Supervisor) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Unregister retires h if it is still the current handle and reports whether
// it was. A superseded handle is left alone since Register already retired it.
func (s *Supervisor) Unregister(h *Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != h || h == nil {
		return false
	}
	s.current = nil
	s.teardown(h)
	return true
}

// Shutdown tears down the current handle and rejects further registrations.
// It is safe to call more than once.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.current != nil {
		log.Debug("process: shutdown, retiring %s", s.current)
		s.teardown(s.current)
		s.current = nil
	}
}

// teardown cancels the consumer of h and terminates h with all of its
// descendants. Callers hold s.mu.
func (s *Supervisor) teardown(h *Handle) {
	h.cancel()
	if !h.Alive() {
		h.CloseOutput()
		return
	}

	// children are re-parented once their parent dies, so collect them first
	pids, err := s.tree.Descendants(h.PID())
	if err != nil {
		log.Warn("process: cannot enumerate descendants of pid %d, killing it alone: %v", h.PID(), err)
		if kerr := h.cmd.Process.Kill(); kerr != nil && h.Alive() {
			log.Warn("process: kill pid %d: %v", h.PID(), kerr)
		}
		s.await(h, nil)
		h.CloseOutput()
		return
	}

	// leaves first so a parent cannot respawn a child we already stopped
	slices.Reverse(pids)
	for _, pid := range pids {
		log.Trace("process: terminating descendant %d of %d", pid, h.PID())
		if err := s.tree.Terminate(pid); err != nil && s.tree.Alive(pid) {
			log.Debug("process: terminate descendant %d: %v", pid, err)
		}
	}
	if err := s.tree.Terminate(h.PID()); err != nil && h.Alive() {
		log.Debug("process: terminate pid %d: %v", h.PID(), err)
	}

	s.await(h, pids)
	h.CloseOutput()
	log.Debug("process: retired %s with %d descendants", h, len(pids))
}

// await waits up to the grace period for h and pids to exit, then kills
// whatever is left.
func (s *Supervisor) await(h *Handle, pids []int) {
	deadline := time.NewTimer(s.grace)
	defer deadline.Stop()
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	exited := h.Done()

	for {
		remaining := pids[:0:0]
		for _, pid := range pids {
			if s.tree.Alive(pid) {
				remaining = append(remaining, pid)
			}
		}
		pids = remaining
		if !h.Alive() && len(pids) == 0 {
			return
		}

		select {
		case <-deadline.C:
			for _, pid := range pids {
				log.Warn("process: descendant %d ignored terminate, killing", pid)
				_ = s.tree.Kill(pid)
			}
			if h.Alive() {
				log.Warn("process: pid %d ignored terminate, killing", h.PID())
				_ = h.cmd.Process.Kill()
				<-h.done
			}
			return
		case <-exited:
			exited = nil
		case <-tick.C:
		}
	}
}
