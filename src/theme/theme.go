// Package theme holds the terminal styles used by the CLI.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/elee1766/gemchat/src/history"
)

// Palette is a set of colors for terminal output.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Error     lipgloss.Color
}

// Default is the palette used unless SetPalette is called.
var Default = Palette{
	Primary:   lipgloss.Color("#00afff"),
	Secondary: lipgloss.Color("#00d787"),
	Text:      lipgloss.Color("#ffffff"),
	TextMuted: lipgloss.Color("#808080"),
	Error:     lipgloss.Color("#ff5f5f"),
}

var current = Default

// SetPalette replaces the current palette.
func SetPalette(p Palette) {
	current = p
}

// Current returns the current palette.
func Current() Palette {
	return current
}

// Styles are the lipgloss styles derived from a palette.
type Styles struct {
	Title   lipgloss.Style
	User    lipgloss.Style
	Bot     lipgloss.Style
	Content lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles derives styles from p.
func NewStyles(p Palette) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		User:    lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		Bot:     lipgloss.NewStyle().Bold(true).Foreground(p.Secondary),
		Content: lipgloss.NewStyle().Foreground(p.Text).PaddingLeft(2),
		Muted:   lipgloss.NewStyle().Foreground(p.TextMuted),
		Error:   lipgloss.NewStyle().Foreground(p.Error),
	}
}

// Role returns the label style for a speaker. Unknown roles are muted.
func (s Styles) Role(role history.Role) lipgloss.Style {
	switch role {
	case history.RoleUser:
		return s.User
	case history.RoleBot:
		return s.Bot
	default:
		return s.Muted
	}
}
