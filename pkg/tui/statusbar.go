// SPDX-License-Identifier: GPL-3.0-only
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/herokl/k8s-log-viewer/pkg/session"
)

// StatusBarStyles defines the styles for the status bar
type StatusBarStyles struct {
	Container      lipgloss.Style
	Label          lipgloss.Style
	Value          lipgloss.Style
	Separator      lipgloss.Style
	FollowActive   lipgloss.Style
	FollowInactive lipgloss.Style
	Loading        lipgloss.Style
	Error          lipgloss.Style
	Message        lipgloss.Style
}

// DefaultStatusBarStyles returns the default styles for the status bar
func DefaultStatusBarStyles() StatusBarStyles {
	return StatusBarStyles{
		Container: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderBottom(true).
			BorderForeground(ColorBorder).
			Padding(0, 1),
		Label: lipgloss.NewStyle().
			Foreground(ColorMuted),
		Value: lipgloss.NewStyle().
			Foreground(ColorText),
		Separator: lipgloss.NewStyle().
			Foreground(ColorMuted),
		FollowActive: lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true),
		FollowInactive: lipgloss.NewStyle().
			Foreground(ColorMuted),
		Loading: lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true),
		Error: lipgloss.NewStyle().
			Foreground(ColorError),
		Message: lipgloss.NewStyle().
			Foreground(ColorWarning),
	}
}

// StatusBar displays the session status between the log view and the input line
type StatusBar struct {
	Width  int
	Styles StatusBarStyles

	Snapshot session.Snapshot
	Message  string
}

// NewStatusBar creates a new status bar with default styles
func NewStatusBar() StatusBar {
	return StatusBar{
		Width:  80,
		Styles: DefaultStatusBarStyles(),
	}
}

// SetMessage shows a transient message
func (s *StatusBar) SetMessage(msg string) {
	s.Message = msg
}

// ClearMessage removes the transient message
func (s *StatusBar) ClearMessage() {
	s.Message = ""
}

// View renders the status bar
func (s StatusBar) View() string {
	if s.Width < 20 {
		return ""
	}
	snap := s.Snapshot
	q := snap.Query
	label := func(name, value string) string {
		return s.Styles.Label.Render(name+": ") + s.Styles.Value.Render(value)
	}

	// Line 1: what is fetched
	var line1 []string
	target := "none (press p)"
	if !q.Selector.Empty() {
		target = q.Selector.String()
	}
	line1 = append(line1, label("Target", target))
	if q.TailLines > 0 {
		line1 = append(line1, label("Tail", fmt.Sprintf("%d", q.TailLines)))
	} else {
		line1 = append(line1, label("Tail", "all"))
	}
	if since, ok := q.SinceSeconds.Get(); ok && since > 0 {
		line1 = append(line1, label("Since", (time.Duration(since)*time.Second).String()))
	}
	if q.LogKeyword != "" {
		line1 = append(line1, label("Keyword", fmt.Sprintf("%q", q.LogKeyword)))
		line1 = append(line1, label("Context", fmt.Sprintf("%d", q.ContextLines)))
	}

	// Line 2: what was received
	var line2 []string
	switch snap.State {
	case session.Fetching:
		line2 = append(line2, s.Styles.Loading.Render("Fetching..."))
	case session.Streaming:
		line2 = append(line2, s.Styles.Loading.Render("Streaming"))
	}
	line2 = append(line2, label("Lines", humanize.Comma(int64(snap.Lines))))
	line2 = append(line2, label("Size", humanize.Bytes(uint64(snap.BufferBytes))))
	if snap.SearchOpen {
		line2 = append(line2, label("Matches", fmt.Sprintf("%d/%d", snap.MatchCurrent, snap.MatchTotal)))
		line2 = append(line2, label("Mode", string(q.MatchMode)))
	}
	if q.SearchRunning {
		line2 = append(line2, s.Styles.FollowActive.Render("LIVE"))
	} else {
		line2 = append(line2, s.Styles.FollowInactive.Render("Follow: OFF"))
	}
	switch {
	case s.Message != "":
		line2 = append(line2, s.Styles.Message.Render(s.Message))
	case snap.Err != nil:
		line2 = append(line2, s.Styles.Error.Render(snap.Err.Error()))
	}

	sep := s.Styles.Separator.Render(" | ")
	content := lipgloss.JoinVertical(lipgloss.Left, strings.Join(line1, sep), strings.Join(line2, sep))
	return s.Styles.Container.Width(s.Width).Render(content)
}

// Height returns the height of the status bar in lines
func (s StatusBar) Height() int {
	return 4 // two lines of content and the borders
}
