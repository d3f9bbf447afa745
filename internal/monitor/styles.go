package monitor

import "github.com/charmbracelet/lipgloss"

// Color palette for the monitor views.
var (
	primaryColor   = lipgloss.Color("#7D56F4") // Purple
	secondaryColor = lipgloss.Color("#43BF6D") // Green
	warningColor   = lipgloss.Color("#FFA500") // Orange
	errorColor     = lipgloss.Color("#FF0000") // Red
	textColor      = lipgloss.Color("#FFFFFF") // White
	subtleColor    = lipgloss.Color("#626262") // Gray
	borderColor    = lipgloss.Color("#7D56F4") // Purple (same as primary)
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(subtleColor)

	valueStyle = lipgloss.NewStyle().
			Width(8).
			Foreground(textColor).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	flagOnStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	flagOffStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	okStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	connectedStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(errorColor).
				Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)
