// SPDX-License-Identifier: GPL-3.0-only
package printer

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
)

// InitColor decides whether the printer emits ANSI colors and sets
// color.NoColor accordingly. Priority order (highest to lowest):
//  1. Explicit user setting (--color / --no-color)
//  2. NO_COLOR environment variable
//  3. TTY detection on writer
//  4. Disabled for writers that are not files
func InitColor(explicitSetting *bool, writer io.Writer) bool {
	enabled := false
	switch {
	case explicitSetting != nil:
		enabled = *explicitSetting
	case os.Getenv("NO_COLOR") != "":
		enabled = false
	default:
		if f, ok := writer.(*os.File); ok {
			enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	color.NoColor = !enabled
	return enabled
}

var namedColors = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

// background attributes sit at a fixed distance from the foreground ones
const bgOffset = color.BgBlack - color.FgBlack

// Palette maps highlight tags to terminal colors.
type Palette map[highlight.Tag]*color.Color

// DefaultPalette colors keyword hits; plain text is left untouched.
func DefaultPalette() Palette {
	return Palette{
		highlight.TagLog:      color.New(color.FgYellow, color.Bold),
		highlight.TagSearch:   color.New(color.FgBlack, color.BgCyan),
		highlight.TagSelected: color.New(color.FgBlack, color.BgMagenta, color.Bold),
	}
}

// PaletteFromConfig overrides the default palette with the configured
// styles. Only named colors ("red", "hired") are understood by the
// terminal printer; other values keep the default.
func PaletteFromConfig(styles map[string]config.Style) Palette {
	p := DefaultPalette()
	for name, s := range styles {
		var attrs []color.Attribute
		if fg, ok := parseColor(s.Foreground); ok {
			attrs = append(attrs, fg)
		}
		if bg, ok := parseColor(s.Background); ok {
			attrs = append(attrs, bg+bgOffset)
		}
		if s.Bold {
			attrs = append(attrs, color.Bold)
		}
		if s.Underline {
			attrs = append(attrs, color.Underline)
		}
		if len(attrs) == 0 {
			continue
		}
		p[highlight.Tag(name)] = color.New(attrs...)
	}
	return p
}

// parseColor accepts a color name, optionally prefixed with "hi" for the
// bright variant.
func parseColor(name string) (color.Attribute, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	bright := strings.HasPrefix(name, "hi")
	attr, ok := namedColors[strings.TrimPrefix(name, "hi")]
	if !ok {
		return 0, false
	}
	if bright {
		attr += color.FgHiBlack - color.FgBlack
	}
	return attr, true
}

// tagPriority is the order in which overlapping tags win, strongest first.
var tagPriority = []highlight.Tag{
	highlight.TagSelected,
	highlight.TagSearch,
	highlight.TagLog,
	highlight.TagBase,
}

// For returns the color of the strongest tag in tags, nil for plain text.
func (p Palette) For(tags []highlight.Tag) *color.Color {
	for _, want := range tagPriority {
		if c, ok := p[want]; ok && lo.Contains(tags, want) {
			return c
		}
	}
	return nil
}
