package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorCyan   = lipgloss.Color("#00FFFF")
	ColorGray   = lipgloss.Color("#666666")
	ColorWhite  = lipgloss.Color("#FFFFFF")
	ColorYellow = lipgloss.Color("#FFFF00")
	ColorRed    = lipgloss.Color("#FF0000")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	// DetailBoxStyle frames the detail text over the translucent plane.
	DetailBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	AlertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorYellow).
			Padding(1, 2)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)
)
