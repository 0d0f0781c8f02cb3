// SPDX-License-Identifier: GPL-3.0-only
package highlight

import (
	"slices"
	"sort"

	"github.com/samber/lo"
)

// Tag names a style class applied to a region of text.
type Tag string

const (
	// TagBase is carried by every run.
	TagBase Tag = "log-text"
	// TagLog marks occurrences of the fetch-time log keyword.
	TagLog Tag = "log-highlight"
	// TagSearch marks occurrences of the inline search keyword.
	TagSearch Tag = "search-highlight"
	// TagSelected marks the currently selected match.
	TagSelected Tag = "search-selected"
)

// Keyword pairs a keyword with the tag its occurrences receive.
type Keyword struct {
	Text string
	Tag  Tag
	Mode MatchMode
}

// StyleRun is a maximal span of text sharing one set of tags. Styles is
// sorted and never contains duplicates.
type StyleRun struct {
	Length int   `json:"length"`
	Styles []Tag `json:"styles"`
}

// Has reports whether the run carries tag.
func (r StyleRun) Has(tag Tag) bool {
	_, found := slices.BinarySearch(r.Styles, tag)
	return found
}

// TaggedInterval is an Interval carrying the tag of the keyword that produced it.
type TaggedInterval struct {
	Interval
	Tag Tag
}

// Intervals returns the occurrences of every keyword in text, in keyword
// order. Keywords that are empty or fail to compile contribute nothing.
func Intervals(text string, keywords ...Keyword) []TaggedInterval {
	var out []TaggedInterval
	for _, kw := range keywords {
		m, err := NewMatcher(kw.Text, kw.Mode)
		if err != nil || m == nil {
			continue
		}
		for _, iv := range m.FindAll(text) {
			out = append(out, TaggedInterval{Interval: iv, Tag: kw.Tag})
		}
	}
	return out
}

type event struct {
	pos   int
	tag   Tag
	delta int
}

// ComputeStyles partitions text into StyleRuns. base is present on every
// run; each keyword occurrence adds its tag to the runs it covers, and
// overlapping occurrences union their tags. The run lengths always sum to
// len(text). Empty text yields no runs.
//
// ComputeStyles has no side effects and may run on any goroutine.
func ComputeStyles(text string, base Tag, keywords ...Keyword) []StyleRun {
	return RunsFromIntervals(len(text), base, Intervals(text, keywords...))
}

// RunsFromIntervals sweeps tagged intervals over a text of length n and
// returns the resulting partition. Intervals are clamped to [0, n).
func RunsFromIntervals(n int, base Tag, intervals []TaggedInterval) []StyleRun {
	if n <= 0 {
		return nil
	}

	events := make([]event, 0, len(intervals)*2)
	for _, iv := range intervals {
		start, end := max(iv.Start, 0), min(iv.End, n)
		if end <= start {
			continue
		}
		events = append(events, event{pos: start, tag: iv.Tag, delta: 1}, event{pos: end, tag: iv.Tag, delta: -1})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].pos < events[j].pos })

	active := map[Tag]int{}
	var runs []StyleRun
	emit := func(length int) {
		if length <= 0 {
			return
		}
		styles := activeSet(base, active)
		if last := len(runs) - 1; last >= 0 && slices.Equal(runs[last].Styles, styles) {
			runs[last].Length += length
			return
		}
		runs = append(runs, StyleRun{Length: length, Styles: styles})
	}

	cursor := 0
	for i := 0; i < len(events); {
		pos := events[i].pos
		emit(pos - cursor)
		for ; i < len(events) && events[i].pos == pos; i++ {
			active[events[i].tag] += events[i].delta
		}
		cursor = pos
	}
	emit(n - cursor)
	return runs
}

func activeSet(base Tag, active map[Tag]int) []Tag {
	tags := lo.Keys(lo.PickBy(active, func(_ Tag, count int) bool { return count > 0 }))
	if base != "" {
		tags = append(tags, base)
	}
	tags = lo.Uniq(tags)
	slices.Sort(tags)
	return tags
}

// Regions converts runs into absolute [start,end) regions beginning at offset.
func Regions(offset int, runs []StyleRun) []Region {
	out := make([]Region, 0, len(runs))
	for _, r := range runs {
		out = append(out, Region{Offset: offset, Length: r.Length, Styles: r.Styles})
		offset += r.Length
	}
	return out
}

// Region is a StyleRun placed at an absolute offset.
type Region struct {
	Offset int
	Length int
	Styles []Tag
}
