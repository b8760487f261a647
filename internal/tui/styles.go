package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#00D7FF")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	healthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF87"))
	probationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	cooldownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8700"))
	disabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	lockedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	logStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)
