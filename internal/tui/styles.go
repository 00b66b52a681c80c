package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan
	colorSuccess   = lipgloss.Color("#10B981") // Green
	colorWarning   = lipgloss.Color("#F59E0B") // Amber
	colorError     = lipgloss.Color("#EF4444") // Red
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorHighlight = lipgloss.Color("#374151") // Highlight bg

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	filterBadge = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Background(lipgloss.Color("#1E3A5F")).
			PaddingLeft(1).
			PaddingRight(1)

	selectedStyle = lipgloss.NewStyle().
			Background(colorHighlight).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	normalStyle = lipgloss.NewStyle()

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D1D5DB"))

	publisherStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(22)

	yearStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(4)

	installedStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	notInstalledStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	detailTitleStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	noteStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Italic(true)

	ruleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#111827")).
			Foreground(lipgloss.Color("#9CA3AF")).
			PaddingLeft(1).
			PaddingRight(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	progressBarFilled = lipgloss.NewStyle().
				Foreground(colorSuccess)

	progressBarEmpty = lipgloss.NewStyle().
				Foreground(colorMuted)

	searchPromptStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	caretStyle = lipgloss.NewStyle().
			Reverse(true)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)

	errorDialogStyle = dialogStyle.
				BorderForeground(colorError)
)
