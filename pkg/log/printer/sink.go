// SPDX-License-Identifier: GPL-3.0-only
package printer

import (
	"bufio"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/session"
)

// TerminalSink prints the session buffer to a writer as it grows. Text is
// held until the end of its batch so the styles of a line are known before
// it is written; styles for text already written are ignored.
type TerminalSink struct {
	mu      sync.Mutex
	out     *bufio.Writer
	palette Palette

	written int // offset of the first pending byte
	pending []byte
	tags    [][]highlight.Tag
	batched bool
	err     error
}

var (
	_ session.Sink    = (*TerminalSink)(nil)
	_ session.Batcher = (*TerminalSink)(nil)
)

// NewTerminalSink writes to w using palette. A nil palette prints plain text.
func NewTerminalSink(w io.Writer, palette Palette) *TerminalSink {
	return &TerminalSink{out: bufio.NewWriter(w), palette: palette}
}

func (t *TerminalSink) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batched = true
}

func (t *TerminalSink) Commit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batched = false
	t.flushLocked()
}

// InsertText only accepts text at the end of the buffer.
func (t *TerminalSink) InsertText(offset int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if offset != t.written+len(t.pending) {
		return
	}
	t.pending = append(t.pending, text...)
	t.tags = append(t.tags, make([][]highlight.Tag, len(text))...)
	if !t.batched {
		t.flushLocked()
	}
}

func (t *TerminalSink) ApplyStyleRegion(offset, length int, styles []highlight.Tag) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := max(offset-t.written, 0)
	end := min(offset+length-t.written, len(t.pending))
	for i := start; i < end; i++ {
		t.tags[i] = styles
	}
}

// Clear starts a new buffer. Printed output stays on the terminal.
func (t *TerminalSink) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	t.written = 0
}

func (t *TerminalSink) SelectRange(start, end int) {}

func (t *TerminalSink) ScrollToEnd() {}

// Flush writes any pending text and returns the first write error.
func (t *TerminalSink) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushLocked()
	return t.err
}

func (t *TerminalSink) flushLocked() {
	for start := 0; start < len(t.pending); {
		end := start + 1
		for end < len(t.pending) && slices.Equal(t.tags[end], t.tags[start]) {
			end++
		}
		t.writeRun(string(t.pending[start:end]), t.tags[start])
		start = end
	}
	t.written += len(t.pending)
	t.pending = t.pending[:0]
	t.tags = t.tags[:0]
	if err := t.out.Flush(); err != nil && t.err == nil {
		t.err = err
	}
}

func (t *TerminalSink) writeRun(text string, tags []highlight.Tag) {
	c := t.palette.For(tags)
	if c == nil {
		_, _ = t.out.WriteString(text)
		return
	}
	// keep line breaks outside the escape sequences
	for len(text) > 0 {
		line, rest, found := strings.Cut(text, "\n")
		if line != "" {
			_, _ = c.Fprint(t.out, line)
		}
		if found {
			_ = t.out.WriteByte('\n')
		}
		text = rest
	}
}
