// SPDX-License-Identifier: GPL-3.0-only
package tui

import (
	"bytes"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
)

// span is a styled byte range of the document.
type span struct {
	start, end int
	styles     []highlight.Tag
}

// Document is the text shown in the log view together with its style runs.
// Spans are sorted, contiguous and cover the whole text. A Document is owned
// by the bubbletea goroutine.
type Document struct {
	text  []byte
	spans []span

	selStart, selEnd int
	hasSelection     bool
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Len returns the size of the text in bytes.
func (d *Document) Len() int { return len(d.text) }

// Text returns the document text.
func (d *Document) Text() string { return string(d.text) }

// Clear empties the document.
func (d *Document) Clear() {
	d.text = nil
	d.spans = nil
	d.hasSelection = false
}

// Insert inserts text at offset with the base style.
func (d *Document) Insert(offset int, text string) {
	if text == "" {
		return
	}
	offset = max(0, min(offset, len(d.text)))
	d.text = slices.Insert(d.text, offset, []byte(text)...)

	i := d.split(offset)
	for j := i; j < len(d.spans); j++ {
		d.spans[j].start += len(text)
		d.spans[j].end += len(text)
	}
	d.spans = slices.Insert(d.spans, i, span{start: offset, end: offset + len(text), styles: []highlight.Tag{highlight.TagBase}})
	d.merge(i)

	if d.hasSelection && d.selStart >= offset {
		d.selStart += len(text)
		d.selEnd += len(text)
	}
}

// Style replaces the styles of [offset, offset+length).
func (d *Document) Style(offset, length int, styles []highlight.Tag) {
	start := max(0, offset)
	end := min(len(d.text), offset+length)
	if end <= start {
		return
	}
	i := d.split(start)
	j := d.split(end)
	d.spans = slices.Replace(d.spans, i, j, span{start: start, end: end, styles: styles})
	d.merge(i)
}

// TrimFront drops the first n bytes.
func (d *Document) TrimFront(n int) {
	n = min(n, len(d.text))
	if n <= 0 {
		return
	}
	d.text = append([]byte(nil), d.text[n:]...)
	i := d.split(n)
	d.spans = append([]span(nil), d.spans[i:]...)
	for j := range d.spans {
		d.spans[j].start -= n
		d.spans[j].end -= n
	}
	if d.hasSelection {
		if d.selStart < n {
			d.hasSelection = false
		} else {
			d.selStart -= n
			d.selEnd -= n
		}
	}
}

// Select marks [start, end) as the selected range.
func (d *Document) Select(start, end int) {
	d.selStart, d.selEnd, d.hasSelection = start, end, true
}

// Selection returns the selected range.
func (d *Document) Selection() (int, int, bool) {
	return d.selStart, d.selEnd, d.hasSelection
}

// StylesAt returns the styles of the byte at offset.
func (d *Document) StylesAt(offset int) []highlight.Tag {
	i := sort.Search(len(d.spans), func(i int) bool { return d.spans[i].end > offset })
	if i == len(d.spans) || d.spans[i].start > offset {
		return nil
	}
	return d.spans[i].styles
}

// LineAt returns the 0-based line number containing offset.
func (d *Document) LineAt(offset int) int {
	offset = max(0, min(offset, len(d.text)))
	return bytes.Count(d.text[:offset], []byte{'\n'})
}

// LineText returns the line containing offset, without its newline.
func (d *Document) LineText(offset int) string {
	offset = max(0, min(offset, len(d.text)))
	start := bytes.LastIndexByte(d.text[:offset], '\n') + 1
	end := len(d.text)
	if i := bytes.IndexByte(d.text[offset:], '\n'); i >= 0 {
		end = offset + i
	}
	return string(d.text[start:end])
}

// Render draws the document with styles, one string per line.
func (d *Document) Render(styles TagStyles) string {
	var b strings.Builder
	b.Grow(len(d.text) * 2)
	for _, s := range d.spans {
		style := styles.For(s.styles)
		chunk := string(d.text[s.start:s.end])
		// lipgloss pads multi-line blocks, so render line by line
		for i, line := range strings.Split(chunk, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// split makes offset a span boundary and returns the index of the span
// starting at offset, len(d.spans) at the end of the text.
func (d *Document) split(offset int) int {
	i := sort.Search(len(d.spans), func(i int) bool { return d.spans[i].end > offset })
	if i == len(d.spans) || d.spans[i].start == offset {
		return i
	}
	s := d.spans[i]
	d.spans = slices.Insert(d.spans, i+1, span{start: offset, end: s.end, styles: s.styles})
	d.spans[i].end = offset
	return i + 1
}

// merge joins span i with equal-styled neighbours.
func (d *Document) merge(i int) {
	if i+1 < len(d.spans) && slices.Equal(d.spans[i].styles, d.spans[i+1].styles) {
		d.spans[i].end = d.spans[i+1].end
		d.spans = slices.Delete(d.spans, i+1, i+2)
	}
	if i > 0 && i < len(d.spans) && slices.Equal(d.spans[i-1].styles, d.spans[i].styles) {
		d.spans[i-1].end = d.spans[i].end
		d.spans = slices.Delete(d.spans, i, i+1)
	}
}

// TagStyles maps highlight tags to terminal styles.
type TagStyles map[highlight.Tag]lipgloss.Style

// For combines the styles of tags, later tags winning.
func (t TagStyles) For(tags []highlight.Tag) lipgloss.Style {
	style := lipgloss.NewStyle()
	for _, tag := range tagOrder {
		if !slices.Contains(tags, tag) {
			continue
		}
		s, ok := t[tag]
		if !ok {
			continue
		}
		style = style.Inherit(s)
		if fg := s.GetForeground(); fg != (lipgloss.NoColor{}) {
			style = style.Foreground(fg)
		}
		if bg := s.GetBackground(); bg != (lipgloss.NoColor{}) {
			style = style.Background(bg)
		}
	}
	return style
}

// tagOrder ranks tags from weakest to strongest.
var tagOrder = []highlight.Tag{highlight.TagBase, highlight.TagLog, highlight.TagSearch, highlight.TagSelected}
