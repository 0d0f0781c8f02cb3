// SPDX-License-Identifier: GPL-3.0-only

// Package search maintains the inline search state of a log buffer: the
// ordered match index, the navigation cursor and the keystroke debouncer.
package search

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
)

// Index is the ordered, non-overlapping list of matches of one keyword over
// an append-only buffer. An Index is not safe for concurrent use; the owner
// serializes access.
type Index struct {
	matcher *highlight.Matcher
	matches []highlight.Interval
	cursor  int

	// end of the text seen so far and its trailing bytes, kept so that a
	// match straddling two appended chunks is still found
	indexed int
	tail    string
}

// NewIndex returns an empty index with no active keyword.
func NewIndex() *Index {
	return &Index{}
}

// Reset clears all matches and makes keyword the active keyword. An empty
// keyword leaves the index permanently empty until the next Reset.
func (x *Index) Reset(keyword string, mode highlight.MatchMode) error {
	m, err := highlight.NewMatcher(keyword, mode)
	x.matches = nil
	x.cursor = 0
	x.indexed = 0
	x.tail = ""
	if err != nil {
		x.matcher = nil
		return err
	}
	x.matcher = m
	return nil
}

// Keyword returns the active keyword.
func (x *Index) Keyword() string {
	return x.matcher.Keyword()
}

// Mode returns the active match mode.
func (x *Index) Mode() highlight.MatchMode {
	return x.matcher.Mode()
}

// FullRescan recomputes every match of the active keyword over text.
func (x *Index) FullRescan(text string) {
	x.matches = x.matcher.FindAll(text)
	x.cursor = 0
	x.remember(text, 0)
}

// AppendScan indexes suffix, which starts at offset in the buffer. When the
// suffix directly follows the text already indexed, the trailing bytes of
// that text are scanned again together with it, so occurrences crossing
// the boundary are found. Matches never overlap earlier ones.
// Substring results always equal a full rescan. Word and regex results do
// only when every suffix ends with a newline, since a match decided at the
// end of one suffix is not revisited when the next one arrives.
func (x *Index) AppendScan(suffix string, offset int) {
	if x.matcher == nil {
		x.remember(suffix, offset)
		return
	}

	region, start := suffix, offset
	from := 0
	if offset == x.indexed && x.tail != "" {
		region = x.tail + suffix
		start = offset - len(x.tail)
		if start > 0 {
			// the first rune of the tail is only context for the next one
			_, size := utf8.DecodeRuneInString(region)
			from = size
		}
	}
	if n := len(x.matches); n > 0 {
		if last := x.matches[n-1].End - start; last > from {
			from = last
		}
	}

	for _, iv := range x.matcher.FindFrom(region, from) {
		x.matches = append(x.matches, highlight.Interval{Start: iv.Start + start, End: iv.End + start})
	}
	x.remember(suffix, offset)
}

// remember records the end of the indexed text and its trailing bytes.
func (x *Index) remember(chunk string, offset int) {
	span := x.matcher.MaxSpan()
	if span == 0 {
		x.tail = ""
		x.indexed = offset + len(chunk)
		return
	}
	tail := x.tail
	if offset != x.indexed {
		tail = ""
	}
	tail += chunk
	if len(tail) > span {
		tail = tail[len(tail)-span:]
		// keep the tail on a rune boundary
		for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
			tail = tail[1:]
		}
	}
	x.tail = tail
	x.indexed = offset + len(chunk)
}

// Shift drops the first n bytes of the indexed text: matches starting before
// n are removed and the remaining ones move n bytes to the left.
func (x *Index) Shift(n int) {
	if n <= 0 {
		return
	}
	kept := x.matches[:0]
	removed := 0
	for _, iv := range x.matches {
		if iv.Start < n {
			removed++
			continue
		}
		kept = append(kept, highlight.Interval{Start: iv.Start - n, End: iv.End - n})
	}
	x.matches = kept
	x.cursor -= removed
	if x.cursor < 0 || x.cursor >= len(x.matches) {
		x.cursor = 0
	}
	x.indexed -= n
	if x.indexed < len(x.tail) {
		x.tail = x.tail[len(x.tail)-max(x.indexed, 0):]
	}
	if x.indexed < 0 {
		x.indexed = 0
	}
}

// Next advances the cursor, wrapping to the first match after the last one.
func (x *Index) Next() (highlight.Interval, bool) {
	if len(x.matches) == 0 {
		return highlight.Interval{}, false
	}
	x.cursor = (x.cursor + 1) % len(x.matches)
	return x.matches[x.cursor], true
}

// Previous moves the cursor back, wrapping to the last match before the first one.
func (x *Index) Previous() (highlight.Interval, bool) {
	if len(x.matches) == 0 {
		return highlight.Interval{}, false
	}
	x.cursor = (x.cursor - 1 + len(x.matches)) % len(x.matches)
	return x.matches[x.cursor], true
}

// Current returns the match under the cursor.
func (x *Index) Current() (highlight.Interval, bool) {
	if len(x.matches) == 0 {
		return highlight.Interval{}, false
	}
	return x.matches[x.cursor], true
}

// Count returns the 1-based cursor position and the number of matches, or
// (0, 0) when there are none.
func (x *Index) Count() (int, int) {
	if len(x.matches) == 0 {
		return 0, 0
	}
	return x.cursor + 1, len(x.matches)
}

// Label renders Count as "current/total".
func (x *Index) Label() string {
	cur, total := x.Count()
	return fmt.Sprintf("%d/%d", cur, total)
}

// Matches returns a copy of the match list.
func (x *Index) Matches() []highlight.Interval {
	return append([]highlight.Interval(nil), x.matches...)
}

// Len returns the number of matches.
func (x *Index) Len() int {
	return len(x.matches)
}

// Since returns a copy of the matches from position i on.
func (x *Index) Since(i int) []highlight.Interval {
	if i >= len(x.matches) {
		return nil
	}
	return append([]highlight.Interval(nil), x.matches[max(i, 0):]...)
}

// Within returns the matches intersecting [start, end).
func (x *Index) Within(start, end int) []highlight.Interval {
	i := sort.Search(len(x.matches), func(i int) bool { return x.matches[i].End > start })
	var out []highlight.Interval
	for ; i < len(x.matches) && x.matches[i].Start < end; i++ {
		out = append(out, x.matches[i])
	}
	return out
}
