package monitor

import "github.com/charmbracelet/lipgloss"

var (
	ColorRed    = lipgloss.Color("#FF0000")
	ColorGreen  = lipgloss.Color("#00FF00")
	ColorYellow = lipgloss.Color("#FFFF00")
	ColorCyan   = lipgloss.Color("#00FFFF")
	ColorGray   = lipgloss.Color("#666666")
)

var (
	TitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(ColorCyan)
	LabelStyle      = lipgloss.NewStyle().Foreground(ColorCyan).Width(11)
	OKStyle         = lipgloss.NewStyle().Foreground(ColorGreen)
	ErrorTextStyle  = lipgloss.NewStyle().Foreground(ColorRed)
	DimStyle        = lipgloss.NewStyle().Foreground(ColorGray)
	FooterKeyStyle  = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	FooterDescStyle = lipgloss.NewStyle().Foreground(ColorGray)
)
