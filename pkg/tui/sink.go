// SPDX-License-Identifier: GPL-3.0-only
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/session"
)

// docOp is one change to the document.
type docOp func(d *Document, v *viewState)

// viewState collects the scroll requests of a batch.
type viewState struct {
	scrollToEnd bool
	reveal      int
	hasReveal   bool
}

// DocumentBatchMsg carries the sink calls made between Begin and Commit.
type DocumentBatchMsg struct {
	ops []docOp
}

// StatusMsg carries a new session snapshot.
type StatusMsg struct {
	Snapshot session.Snapshot
}

// ProgramSink forwards sink calls to a bubbletea program as messages, so the
// document is only ever touched by the program's Update.
type ProgramSink struct {
	send    func(tea.Msg)
	pending []docOp
	batched bool
}

// NewProgramSink returns a sink delivering to send, usually Program.Send.
func NewProgramSink(send func(tea.Msg)) *ProgramSink {
	return &ProgramSink{send: send}
}

var (
	_ session.Sink     = (*ProgramSink)(nil)
	_ session.Batcher  = (*ProgramSink)(nil)
	_ session.Trimmer  = (*ProgramSink)(nil)
	_ session.Notifier = (*ProgramSink)(nil)
)

func (p *ProgramSink) Begin() {
	p.batched = true
}

func (p *ProgramSink) Commit() {
	p.batched = false
	p.flush()
}

func (p *ProgramSink) add(op docOp) {
	p.pending = append(p.pending, op)
	if !p.batched {
		p.flush()
	}
}

func (p *ProgramSink) flush() {
	if len(p.pending) == 0 {
		return
	}
	ops := p.pending
	p.pending = nil
	p.send(DocumentBatchMsg{ops: ops})
}

func (p *ProgramSink) InsertText(offset int, text string) {
	p.add(func(d *Document, _ *viewState) { d.Insert(offset, text) })
}

func (p *ProgramSink) ApplyStyleRegion(offset, length int, styles []highlight.Tag) {
	p.add(func(d *Document, _ *viewState) { d.Style(offset, length, styles) })
}

func (p *ProgramSink) Clear() {
	p.add(func(d *Document, _ *viewState) { d.Clear() })
}

func (p *ProgramSink) SelectRange(start, end int) {
	p.add(func(d *Document, v *viewState) {
		d.Select(start, end)
		v.reveal, v.hasReveal = start, true
	})
}

func (p *ProgramSink) ScrollToEnd() {
	p.add(func(_ *Document, v *viewState) { v.scrollToEnd = true })
}

func (p *ProgramSink) TrimFront(n int) {
	p.add(func(d *Document, _ *viewState) { d.TrimFront(n) })
}

// StatusChanged is delivered in order with the document changes.
func (p *ProgramSink) StatusChanged(snap session.Snapshot) {
	p.flush()
	p.send(StatusMsg{Snapshot: snap})
}
