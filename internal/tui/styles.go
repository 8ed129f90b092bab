package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#89b4fa")
	accentColor  = lipgloss.Color("#cba6f7")
	successColor = lipgloss.Color("#a6e3a1")
	errorColor   = lipgloss.Color("#f38ba8")
	warningColor = lipgloss.Color("#f9e2af")
	dimColor     = lipgloss.Color("#6c7086")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	RecordingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	ProcessingStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	QuestionStyle = lipgloss.NewStyle().
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(0, 1)
)
