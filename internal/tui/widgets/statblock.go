// ABOUTME: Compact stat block widget for summary rows
// ABOUTME: Combines an icon, title, value, and subtitle in a bordered panel

package widgets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/markalston/lms-cli/internal/tui/icons"
)

// StatBlockConfig holds configuration for a stat block
type StatBlockConfig struct {
	Width       int
	BorderColor lipgloss.Color
	TitleColor  lipgloss.Color
	ValueColor  lipgloss.Color
}

// DefaultStatBlockConfig returns sensible defaults
func DefaultStatBlockConfig() StatBlockConfig {
	return StatBlockConfig{
		Width:       22,
		BorderColor: lipgloss.Color("#6B7280"), // Muted gray
		TitleColor:  lipgloss.Color("#7C3AED"), // Purple
		ValueColor:  lipgloss.Color("#F9FAFB"), // Light
	}
}

// StatBlock renders a compact stat display block with the title in its top border
func StatBlock(icon icons.Icon, title, value, subtitle string, config StatBlockConfig) string {
	if config.Width <= 0 {
		config.Width = 22
	}
	innerWidth := config.Width - 4

	titleStr := ansi.Truncate(fmt.Sprintf("%s %s", icon.String(), title), innerWidth, "")
	titleStyle := lipgloss.NewStyle().Foreground(config.TitleColor)
	borderStyle := lipgloss.NewStyle().Foreground(config.BorderColor)

	top := borderStyle.Render("┌─ ") + titleStyle.Render(titleStr) +
		borderStyle.Render(" "+strings.Repeat("─", max(0, innerWidth-lipgloss.Width(titleStr)-1))+"┐")

	valueStyle := lipgloss.NewStyle().Foreground(config.ValueColor).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	line := func(content string) string {
		content = ansi.Truncate(content, innerWidth, "…")
		pad := strings.Repeat(" ", max(0, innerWidth-lipgloss.Width(content)))
		return borderStyle.Render("│  ") + content + pad + borderStyle.Render("│")
	}

	bottom := borderStyle.Render("└" + strings.Repeat("─", config.Width-2) + "┘")

	return strings.Join([]string{
		top,
		line(valueStyle.Render(value)),
		line(subtitleStyle.Render(subtitle)),
		bottom,
	}, "\n")
}

// CountBlock renders a simple count stat (courses, students, grades)
func CountBlock(icon icons.Icon, title string, count int, label string, config StatBlockConfig) string {
	return StatBlock(icon, title, strconv.Itoa(count), label, config)
}
