package notifier

import "github.com/charmbracelet/lipgloss"

var (
	colorRed   = lipgloss.Color("#ff3333")
	colorAmber = lipgloss.Color("#ffb000")
	colorText  = lipgloss.Color("#e5e5e5")
	colorMuted = lipgloss.Color("#707070")
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorRed).
			Padding(0, 1)

	titleStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(colorText)
	addressStyle = lipgloss.NewStyle().Foreground(colorAmber).Bold(true)
	timeStyle    = lipgloss.NewStyle().Foreground(colorMuted)
)
