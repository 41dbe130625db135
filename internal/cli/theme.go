package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/medilink-console/internal/models"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

// Theme holds the color scheme for the console.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Info       lipgloss.Color
	User       lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Info:       lipgloss.Color("#D7AF5F"), // amber
	User:       lipgloss.Color("#AF87FF"), // violet
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(t.ProgressBg)
}

func (t Theme) roleStyle(role models.Role) lipgloss.Style {
	switch role {
	case models.RoleUser:
		return lipgloss.NewStyle().Foreground(t.User).Bold(true)
	case models.RoleAssistant:
		return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(t.Status)
	}
}

func (t Theme) toastStyle(kind session.ToastKind) lipgloss.Style {
	color := t.Info
	switch kind {
	case session.ToastSuccess:
		color = t.Success
	case session.ToastError:
		color = t.Error
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)
}
