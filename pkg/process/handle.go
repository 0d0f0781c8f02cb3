// SPDX-License-Identifier: GPL-3.0-only

// Package process starts the external log source and guarantees that at most
// one of them runs per session, tearing down the whole process tree of any
// process it replaces.
package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Handle is a started external process whose stdout and stderr are merged
// into a single stream. The handle's context is cancelled when the process is
// retired so that its consumer stops.
type Handle struct {
	cmd    *exec.Cmd
	stdout *os.File

	ctx    context.Context
	cancel context.CancelFunc

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
}

// Start runs cmd with stdout and stderr merged into one pipe.
func Start(cmd *exec.Cmd) (*Handle, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create output pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("start %s: %w", describe(cmd), err)
	}
	// the child holds its own copy of the write end
	_ = w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		cmd:    cmd,
		stdout: r,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

// PID returns the operating system process id.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Stdout is the merged output stream. It is closed by CloseOutput.
func (h *Handle) Stdout() io.Reader {
	return h.stdout
}

// CloseOutput closes the read end of the output pipe, unblocking any reader.
func (h *Handle) CloseOutput() {
	h.closeOnce.Do(func() { _ = h.stdout.Close() })
}

// Context is cancelled when the handle is retired.
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Retired reports whether the handle has been retired by its supervisor.
func (h *Handle) Retired() bool {
	return h.ctx.Err() != nil
}

// Alive reports whether the process has not exited yet.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process exits and returns its exit error.
func (h *Handle) Wait() error {
	<-h.done
	return h.waitErr
}

// String describes the handle for log lines.
func (h *Handle) String() string {
	return fmt.Sprintf("pid=%d cmd=%q", h.PID(), describe(h.cmd))
}

func describe(cmd *exec.Cmd) string {
	s := strings.Join(cmd.Args, " ")
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}
