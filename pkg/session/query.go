// SPDX-License-Identifier: GPL-3.0-only
package session

import (
	"fmt"
	"strings"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

// Selector identifies the container whose logs are fetched. An empty
// Container lets kubectl pick the default one.
type Selector struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Pod       string `json:"pod" yaml:"pod"`
	Container string `json:"container,omitempty" yaml:"container,omitempty"`
}

// Empty reports whether no pod is selected.
func (s Selector) Empty() bool {
	return s.Pod == ""
}

func (s Selector) String() string {
	var b strings.Builder
	if s.Namespace != "" {
		b.WriteString(s.Namespace)
		b.WriteByte('/')
	}
	b.WriteString(s.Pod)
	if s.Container != "" {
		b.WriteByte(':')
		b.WriteString(s.Container)
	}
	return b.String()
}

// ParseSelector parses "namespace/pod:container"; namespace and container
// are optional.
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	rest := strings.TrimSpace(s)
	if ns, pod, ok := strings.Cut(rest, "/"); ok {
		sel.Namespace, rest = ns, pod
	}
	if pod, c, ok := strings.Cut(rest, ":"); ok {
		rest, sel.Container = pod, c
	}
	sel.Pod = rest
	if sel.Pod == "" || strings.ContainsAny(sel.Pod, "/: ") {
		return Selector{}, fmt.Errorf("invalid target %q (expected [namespace/]pod[:container])", s)
	}
	return sel, nil
}

// Query is everything a fetch is built from.
type Query struct {
	Selector Selector
	// TailLines limits the fetch to the last n lines; 0 fetches everything.
	TailLines int
	// ContextLines is the number of lines kept around each keyword hit.
	ContextLines int
	// SinceSeconds restricts the fetch to recent lines.
	SinceSeconds ty.Opt[int64]
	// Follow keeps the log source open for new lines.
	Follow bool
	// LogKeyword filters lines at fetch time and is highlighted with TagLog.
	LogKeyword string
	// SearchRunning scrolls the sink to the end on every appended line.
	SearchRunning bool
	// MatchMode applies to the inline search keyword.
	MatchMode highlight.MatchMode
}

// DefaultQuery holds the values a new session starts with.
func DefaultQuery() Query {
	return Query{
		TailLines:     1000,
		Follow:        true,
		SearchRunning: true,
		MatchMode:     highlight.ModeSubstring,
	}
}

// Validate checks the numeric bounds of q.
func (q Query) Validate() error {
	if q.TailLines < 0 {
		return fmt.Errorf("tail lines must be >= 0, got %d", q.TailLines)
	}
	if q.ContextLines < 0 {
		return fmt.Errorf("context lines must be >= 0, got %d", q.ContextLines)
	}
	if v, ok := q.SinceSeconds.Get(); ok && v < 0 {
		return fmt.Errorf("since seconds must be >= 0, got %d", v)
	}
	return nil
}
