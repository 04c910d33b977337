package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")).Bold(true)
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387"))
	balanceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89dceb"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#94e2d5")).Bold(true)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#585b70")).Padding(0, 1)
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#f9e2af")).Padding(0, 1)
)
