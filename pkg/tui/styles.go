// SPDX-License-Identifier: GPL-3.0-only
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#3B82F6") // Blue
	ColorSuccess   = lipgloss.Color("#22C55E") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
	ColorBg        = lipgloss.Color("#1F2937") // Dark background
	ColorBgActive  = lipgloss.Color("#374151") // Active background
	ColorText      = lipgloss.Color("#F9FAFB") // Light text
	ColorTextMuted = lipgloss.Color("#9CA3AF") // Muted text
)

// Styles contains all UI styles
type Styles struct {
	Header    lipgloss.Style
	TabActive lipgloss.Style
	TabBar    lipgloss.Style
	HelpBar   lipgloss.Style

	// Picker overlay
	Title        lipgloss.Style
	Item         lipgloss.Style
	ItemSelected lipgloss.Style
	ItemMuted    lipgloss.Style

	// Input line
	Input       lipgloss.Style
	InputActive lipgloss.Style
	Prompt      lipgloss.Style
	Error       lipgloss.Style

	// Log text, per highlight tag
	Tags TagStyles
}

// DefaultTagStyles colors log keyword hits amber, search hits blue and the
// selected match purple.
func DefaultTagStyles() TagStyles {
	return TagStyles{
		highlight.TagBase: lipgloss.NewStyle().Foreground(ColorText),
		highlight.TagLog: lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true),
		highlight.TagSearch: lipgloss.NewStyle().
			Background(ColorSecondary).
			Foreground(ColorText),
		highlight.TagSelected: lipgloss.NewStyle().
			Background(ColorPrimary).
			Foreground(ColorText).
			Bold(true),
	}
}

// TagStylesFromConfig overrides the default tag styles with the configured
// ones. Unknown tag names are ignored.
func TagStylesFromConfig(styles map[string]config.Style) TagStyles {
	out := DefaultTagStyles()
	for name, s := range styles {
		tag := highlight.Tag(name)
		if _, known := out[tag]; !known {
			continue
		}
		style := lipgloss.NewStyle().Bold(s.Bold).Underline(s.Underline)
		if s.Foreground != "" {
			style = style.Foreground(lipgloss.Color(s.Foreground))
		}
		if s.Background != "" {
			style = style.Background(lipgloss.Color(s.Background))
		}
		out[tag] = style
	}
	return out
}

// DefaultStyles creates the default style set
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(ColorBg).
			Foreground(ColorText).
			Padding(0, 1),

		TabActive: lipgloss.NewStyle().
			Background(ColorPrimary).
			Foreground(ColorText).
			Bold(true).
			Padding(0, 2).
			MarginRight(1),

		TabBar: lipgloss.NewStyle().
			Background(ColorBg).
			Padding(0, 1),

		HelpBar: lipgloss.NewStyle().
			Background(ColorBg).
			Foreground(ColorMuted).
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1),

		Item: lipgloss.NewStyle().
			Foreground(ColorText),

		ItemSelected: lipgloss.NewStyle().
			Background(ColorBgActive).
			Foreground(ColorText).
			Bold(true),

		ItemMuted: lipgloss.NewStyle().
			Foreground(ColorTextMuted),

		Input: lipgloss.NewStyle().
			Background(ColorBg).
			Foreground(ColorText).
			Padding(0, 1),

		InputActive: lipgloss.NewStyle().
			Background(ColorBgActive).
			Foreground(ColorText).
			Padding(0, 1),

		Prompt: lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),

		Tags: DefaultTagStyles(),
	}
}
