package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorSky      lipgloss.Color = "#89dceb"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay0 lipgloss.Color = "#6c7086"
	colorSurface1 lipgloss.Color = "#45475a"
)

const (
	colorAccent  = colorPink
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
)

// seriesColors assigns colors to chart series in order.
var seriesColors = []lipgloss.Color{
	colorBlue, colorGreen, colorPeach, colorMauve, colorTeal, colorYellow, colorSky, colorPink,
}

func seriesColor(i int) lipgloss.Color {
	return seriesColors[i%len(seriesColors)]
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	dimStyle       = lipgloss.NewStyle().Foreground(colorOverlay0)
	subtleStyle    = lipgloss.NewStyle().Foreground(colorSubtext0)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFocus).Underline(true)
	tabStyle       = lipgloss.NewStyle().Foreground(colorSubtext0)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	warnStyle      = lipgloss.NewStyle().Foreground(colorWarning)
	upStyle        = lipgloss.NewStyle().Foreground(colorSuccess)
	downStyle      = lipgloss.NewStyle().Foreground(colorError)
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorFocus)
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1).Padding(0, 1)
)
