// ABOUTME: Colour palette and lipgloss styles for the terminal dashboard
// ABOUTME: Toast and status colours follow the web dashboard's success/error/info scheme

package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/freegoat/manga-admin/internal/dashboard"
)

var (
	colorPrimary = lipgloss.Color("#FF6B9D")
	colorAccent  = lipgloss.Color("#C792EA")
	colorSuccess = lipgloss.Color("#C3E88D")
	colorWarning = lipgloss.Color("#FFCB6B")
	colorError   = lipgloss.Color("#F07178")
	colorInfo    = lipgloss.Color("#82AAFF")
	colorMuted   = lipgloss.Color("#546E7A")
	colorTabBg   = lipgloss.Color("#37474F")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Background(colorTabBg).
			Padding(0, 2).
			Bold(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	focusedInputStyle = inputStyle.BorderForeground(colorPrimary)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 2).
			Width(24)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorWarning).
			Padding(1, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	toastBase = lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("#263238"))
)

// toastStyle picks the background for a toast level.
func toastStyle(level dashboard.Level) lipgloss.Style {
	switch level {
	case dashboard.LevelSuccess:
		return toastBase.Background(colorSuccess)
	case dashboard.LevelError:
		return toastBase.Background(colorError)
	default:
		return toastBase.Background(colorInfo)
	}
}
