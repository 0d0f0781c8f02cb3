// SPDX-License-Identifier: GPL-3.0-only
package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
)

var (
	base     = []highlight.Tag{highlight.TagBase}
	logHit   = []highlight.Tag{highlight.TagLog, highlight.TagBase}
	searched = []highlight.Tag{highlight.TagBase, highlight.TagSearch}
)

// checkSpans verifies the spans cover the text contiguously.
func checkSpans(t *testing.T, d *Document) {
	t.Helper()
	pos := 0
	for _, s := range d.spans {
		require.Equal(t, pos, s.start)
		require.Greater(t, s.end, s.start)
		pos = s.end
	}
	require.Equal(t, d.Len(), pos)
}

func TestDocument_InsertAndStyle(t *testing.T) {
	d := NewDocument()
	d.Insert(0, "info ok\n")
	d.Insert(8, "error boom\n")
	checkSpans(t, d)
	assert.Len(t, d.spans, 1, "equal neighbours merge")

	d.Style(8, 5, logHit)
	checkSpans(t, d)
	assert.Equal(t, base, d.StylesAt(7))
	assert.Equal(t, logHit, d.StylesAt(8))
	assert.Equal(t, logHit, d.StylesAt(12))
	assert.Equal(t, base, d.StylesAt(13))
	assert.Nil(t, d.StylesAt(100))

	// restyling back merges the spans again
	d.Style(8, 5, base)
	checkSpans(t, d)
	assert.Len(t, d.spans, 1)
}

func TestDocument_StyleClampsToText(t *testing.T) {
	d := NewDocument()
	d.Insert(0, "abc")
	d.Style(-2, 4, searched)
	d.Style(2, 10, logHit)
	d.Style(5, 1, base)
	checkSpans(t, d)
	assert.Equal(t, searched, d.StylesAt(0))
	assert.Equal(t, searched, d.StylesAt(1))
	assert.Equal(t, logHit, d.StylesAt(2))
}

func TestDocument_InsertInsideSpan(t *testing.T) {
	d := NewDocument()
	d.Insert(0, "abcdef")
	d.Style(0, 6, searched)
	d.Insert(3, "XY")
	checkSpans(t, d)
	assert.Equal(t, "abcXYdef", d.Text())
	assert.Equal(t, searched, d.StylesAt(2))
	assert.Equal(t, base, d.StylesAt(3))
	assert.Equal(t, base, d.StylesAt(4))
	assert.Equal(t, searched, d.StylesAt(5))
}

func TestDocument_TrimFront(t *testing.T) {
	d := NewDocument()
	d.Insert(0, "aaaa\nbbbb\ncccc\n")
	d.Style(2, 10, searched)
	d.Select(10, 14)

	d.TrimFront(5)
	checkSpans(t, d)
	assert.Equal(t, "bbbb\ncccc\n", d.Text())
	assert.Equal(t, searched, d.StylesAt(0))
	assert.Equal(t, base, d.StylesAt(7))
	start, end, ok := d.Selection()
	require.True(t, ok)
	assert.Equal(t, [2]int{5, 9}, [2]int{start, end})

	d.TrimFront(6)
	_, _, ok = d.Selection()
	assert.False(t, ok, "a trimmed selection is dropped")

	d.TrimFront(100)
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.spans)
}

func TestDocument_Lines(t *testing.T) {
	d := NewDocument()
	d.Insert(0, "first\nsecond line\nthird")

	tests := []struct {
		offset int
		line   int
		text   string
	}{
		{offset: 0, line: 0, text: "first"},
		{offset: 5, line: 0, text: "first"},
		{offset: 6, line: 1, text: "second line"},
		{offset: 13, line: 1, text: "second line"},
		{offset: 20, line: 2, text: "third"},
		{offset: 99, line: 2, text: "third"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.line, d.LineAt(tt.offset), "offset %d", tt.offset)
		assert.Equal(t, tt.text, d.LineText(tt.offset), "offset %d", tt.offset)
	}
}

func TestDocument_RenderKeepsText(t *testing.T) {
	d := NewDocument()
	d.Insert(0, "a error\nb\n")
	d.Style(2, 5, logHit)

	// without tag styles the rendering is the plain text
	assert.Equal(t, "a error\nb", d.Render(TagStyles{}))

	d.Clear()
	assert.Equal(t, "", d.Render(DefaultTagStyles()))
	assert.Equal(t, 0, d.Len())
}
