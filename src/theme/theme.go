package theme

import "github.com/charmbracelet/lipgloss"

// Palette is the set of colors the CLI renders with.
type Palette struct {
	Primary   lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
}

// CurrentTheme is the active palette
var CurrentTheme = Palette{
	Primary:   lipgloss.Color("#7aa2f7"),
	Text:      lipgloss.Color("#c0caf5"),
	TextMuted: lipgloss.Color("#808080"),
	Error:     lipgloss.Color("#f7768e"),
	Warning:   lipgloss.Color("#e0af68"),
}

// SetTheme sets the current theme
func SetTheme(p Palette) {
	CurrentTheme = p
}

// Styles are the lipgloss styles derived from a palette.
type Styles struct {
	Title     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Active    lipgloss.Style
}

// NewStyles builds styles from the current palette.
func NewStyles() Styles {
	p := CurrentTheme
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		User:      lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(p.Text),
		System:    lipgloss.NewStyle().Italic(true).Foreground(p.TextMuted),
		Muted:     lipgloss.NewStyle().Foreground(p.TextMuted),
		Error:     lipgloss.NewStyle().Foreground(p.Error),
		Warning:   lipgloss.NewStyle().Foreground(p.Warning),
		Active:    lipgloss.NewStyle().Bold(true).Underline(true),
	}
}
