// SPDX-License-Identifier: GPL-3.0-only

// Package reader streams newline-delimited output of a log source process to
// a line consumer.
package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/herokl/k8s-log-viewer/pkg/log"
)

const (
	initialBufferSize = 64 * 1024
	maxLineSize       = 1024 * 1024
)

// Source is a running process whose output is read line by line.
// *process.Handle implements it.
type Source interface {
	PID() int
	Stdout() io.Reader
	// Context is cancelled when the source is superseded.
	Context() context.Context
	// CloseOutput unblocks a pending read on Stdout.
	CloseOutput()
}

// StreamReadError reports a failure reading the output of a source.
type StreamReadError struct {
	PID int
	Err error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("reading output of pid %d: %v", e.PID, e.Err)
}

func (e *StreamReadError) Unwrap() error { return e.Err }

// Start reads src on a new goroutine and returns immediately. Every complete
// line, without its terminator, is passed to onLine in production order.
// When the output ends, the source is superseded or reading fails, onDone is
// called exactly once: with nil for end of output or supersession and with a
// *StreamReadError otherwise. No line is delivered after supersession.
// onLine and onDone run on the reader goroutine; the returned channel is
// closed after onDone has returned.
func Start(src Source, onLine func(line string), onDone func(err error)) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		onDone(stream(src, onLine))
	}()
	return finished
}

func stream(src Source, onLine func(string)) (err error) {
	ctx := src.Context()
	defer func() {
		if r := recover(); r != nil {
			err = &StreamReadError{PID: src.PID(), Err: fmt.Errorf("line consumer panicked: %v", r)}
			log.Error("reader: %v", err)
		}
	}()

	stop := context.AfterFunc(ctx, src.CloseOutput)
	defer stop()

	scanner := bufio.NewScanner(src.Stdout())
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxLineSize)

	lines := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		onLine(scanner.Text())
		lines++
	}

	if ctx.Err() != nil {
		log.Debug("reader: pid %d superseded after %d lines", src.PID(), lines)
		return nil
	}
	if serr := scanner.Err(); serr != nil {
		log.Warn("reader: pid %d stopped after %d lines: %v", src.PID(), lines, serr)
		return &StreamReadError{PID: src.PID(), Err: serr}
	}
	log.Debug("reader: pid %d output ended after %d lines", src.PID(), lines)
	return nil
}
