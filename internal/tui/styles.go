package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary    = lipgloss.Color("#0078D7")
	Accent     = lipgloss.Color("#FF4081")
	Background = lipgloss.Color("#121212")
	Foreground = lipgloss.Color("#FFFFFF")
	Glow       = lipgloss.Color("#00E5FF")
	Danger     = lipgloss.Color("#E53935")
	Muted      = lipgloss.Color("#6B7280")
)

type Styles struct {
	Title      lipgloss.Style
	Orb        lipgloss.Style
	OrbPlaying lipgloss.Style
	Status     lipgloss.Style
	Transcript lipgloss.Style
	Empty      lipgloss.Style
	Error      lipgloss.Style
	Notice     lipgloss.Style
	Help       lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1),
		Orb: lipgloss.NewStyle().
			Foreground(Primary),
		OrbPlaying: lipgloss.NewStyle().
			Foreground(Glow),
		Status: lipgloss.NewStyle().
			Foreground(Accent),
		Transcript: lipgloss.NewStyle().
			Foreground(Foreground).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1),
		Empty: lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Danger).
			Padding(0, 1),
		Notice: lipgloss.NewStyle().
			Foreground(Accent),
		Help: lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1),
	}
}
