package ui

import "github.com/charmbracelet/lipgloss"

// Color Palette
// Single source of truth for all TUI colors.
var (
	accentGreen = lipgloss.Color("#A8E6CF") // friend accents
	accentRed   = lipgloss.Color("#FFB3BA") // blocked accents
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true).
			Padding(0, 1)

	friendStyle = lipgloss.NewStyle().
			Foreground(accentGreen)

	blockedStyle = lipgloss.NewStyle().
			Foreground(accentRed)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)
)
