package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface0 lipgloss.Color = "#313244"
	colorMantle   lipgloss.Color = "#181825"
)

const (
	colorAccent  = colorPink
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
	colorMuted   = colorOverlay0
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	labelStyle        = lipgloss.NewStyle().Foreground(colorText).Width(12)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(colorFocus).Bold(true).Width(12)
	valueStyle        = lipgloss.NewStyle().Foreground(colorText)
	placeholderStyle  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	disabledStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	loadingStyle      = lipgloss.NewStyle().Foreground(colorWarning)
	failedStyle       = lipgloss.NewStyle().Foreground(colorError)

	pickerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFocus).
			Padding(0, 1)
	cursorStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Background(colorSurface0).
			Bold(true)

	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	footerStyle  = lipgloss.NewStyle().Background(colorMantle)
	keyStyle     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(colorMuted)
)
