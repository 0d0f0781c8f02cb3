// SPDX-License-Identifier: GPL-3.0-only

// Package highlight computes style runs and match intervals over log text.
//
// All offsets are byte offsets into the UTF-8 text that was scanned.
package highlight

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MatchMode selects how a keyword is matched against the text.
type MatchMode string

const (
	// ModeSubstring is a case-insensitive literal substring match.
	ModeSubstring MatchMode = "substring"
	// ModeWord is a case-insensitive literal match bounded by non-word characters.
	ModeWord MatchMode = "word"
	// ModeRegex treats the keyword as a case-insensitive regular expression.
	ModeRegex MatchMode = "regex"
)

// ParseMatchMode maps a user supplied mode name to a MatchMode. An empty
// string selects ModeSubstring.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSubstring:
		return ModeSubstring, nil
	case ModeWord:
		return ModeWord, nil
	case ModeRegex:
		return ModeRegex, nil
	}
	return "", fmt.Errorf("unknown match mode %q (expected substring, word or regex)", s)
}

// Interval is a half-open [Start, End) byte range.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the interval length in bytes.
func (i Interval) Len() int { return i.End - i.Start }

// Matcher finds non-overlapping keyword occurrences, scanning left to right
// and resuming at the end of each accepted match.
type Matcher struct {
	keyword string
	mode    MatchMode
	re      *regexp.Regexp
}

// NewMatcher compiles keyword for mode. An empty keyword yields a nil
// Matcher, which never matches.
func NewMatcher(keyword string, mode MatchMode) (*Matcher, error) {
	if keyword == "" {
		return nil, nil
	}
	var expr string
	switch mode {
	case ModeRegex:
		expr = "(?i)" + keyword
	case ModeSubstring, ModeWord, "":
		expr = "(?i)" + regexp.QuoteMeta(keyword)
	default:
		return nil, fmt.Errorf("unknown match mode %q", mode)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", keyword, err)
	}
	if mode == "" {
		mode = ModeSubstring
	}
	return &Matcher{keyword: keyword, mode: mode, re: re}, nil
}

// Keyword returns the keyword the matcher was built from.
func (m *Matcher) Keyword() string {
	if m == nil {
		return ""
	}
	return m.keyword
}

// Mode returns the matcher's mode.
func (m *Matcher) Mode() MatchMode {
	if m == nil {
		return ModeSubstring
	}
	return m.mode
}

// MaxSpan is an upper bound, in bytes, on the length of a single match plus
// the leading context a match decision depends on. Incremental scanners keep
// this many trailing bytes so that matches straddling a chunk boundary are
// still found.
func (m *Matcher) MaxSpan() int {
	if m == nil {
		return 0
	}
	// Case folding can map a one byte rune onto a rune of up to UTFMax bytes.
	n := len(m.keyword) * utf8.UTFMax
	switch m.mode {
	case ModeWord:
		n += utf8.UTFMax
	case ModeRegex:
		if n < 256 {
			n = 256
		}
	}
	return n
}

// FindAll returns every match in text.
func (m *Matcher) FindAll(text string) []Interval {
	return m.FindFrom(text, 0)
}

// FindFrom returns the matches in text that start at or after from. Bytes
// before from are only used as context for word boundaries.
func (m *Matcher) FindFrom(text string, from int) []Interval {
	if m == nil || from >= len(text) {
		return nil
	}
	if from < 0 {
		from = 0
	}

	var out []Interval
	pos := from
	for pos < len(text) {
		loc := m.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end == start || (m.mode == ModeWord && !isWordBounded(text, start, end)) {
			// zero width or rejected candidate: retry one rune further
			_, size := utf8.DecodeRuneInString(text[start:])
			if size == 0 {
				size = 1
			}
			pos = start + size
			continue
		}
		out = append(out, Interval{Start: start, End: end})
		pos = end
	}
	return out
}

func isWordBounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
