// SPDX-License-Identifier: GPL-3.0-only

// Package tui provides the interactive terminal log viewer.
package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Search
	Search      key.Binding
	NextMatch   key.Binding
	PrevMatch   key.Binding
	CloseSearch key.Binding
	MatchMode   key.Binding

	// Query
	Target  key.Binding
	Keyword key.Binding
	Since   key.Binding
	Tail    key.Binding
	Context key.Binding

	// Actions
	Follow  key.Binding
	Refresh key.Binding
	Copy    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "go to bottom"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "previous match"),
		),
		CloseSearch: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close search"),
		),
		MatchMode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "match mode"),
		),
		Target: key.NewBinding(
			key.WithKeys("p", "ctrl+t"),
			key.WithHelp("p", "pick pod"),
		),
		Keyword: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "log keyword"),
		),
		Since: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "since"),
		),
		Tail: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tail lines"),
		),
		Context: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "context lines"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "ctrl+r"),
			key.WithHelp("r", "refresh"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c", "y"),
			key.WithHelp("c/y", "copy line"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.NextMatch, k.Target, k.Follow, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Search, k.NextMatch, k.PrevMatch, k.CloseSearch, k.MatchMode},
		{k.Target, k.Keyword, k.Since, k.Tail, k.Context},
		{k.Follow, k.Refresh, k.Copy, k.Help, k.Quit},
	}
}
