// ABOUTME: Grade bar with failing/passing/honours zones
// ABOUTME: Shows a 0-100 grade as a colored horizontal bar

package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GradeBarConfig holds configuration for the grade bar
type GradeBarConfig struct {
	Width      int
	OKColor    lipgloss.Color
	WarnColor  lipgloss.Color
	CritColor  lipgloss.Color
	EmptyColor lipgloss.Color
	ShowZones  bool // Show passing/honours markers in the empty part
}

// DefaultGradeBarConfig returns sensible defaults
func DefaultGradeBarConfig() GradeBarConfig {
	return GradeBarConfig{
		Width:      20,
		OKColor:    BadgeOKBg,
		WarnColor:  BadgeWarnBg,
		CritColor:  BadgeCritBg,
		EmptyColor: lipgloss.Color("#374151"),
		ShowZones:  true,
	}
}

// GradeBar renders a grade bar; the filled part takes the grade's level color
func GradeBar(grade int, config GradeBarConfig) string {
	if config.Width <= 0 {
		config.Width = 20
	}
	grade = max(0, min(grade, 100))

	filled := grade * config.Width / 100
	passPos := PassingGrade * config.Width / 100
	honourPos := HonoursGrade * config.Width / 100

	var color lipgloss.Color
	switch GradeLevel(grade) {
	case StatusCritical:
		color = config.CritColor
	case StatusWarning:
		color = config.WarnColor
	default:
		color = config.OKColor
	}
	fillStyle := lipgloss.NewStyle().Foreground(color)
	emptyStyle := lipgloss.NewStyle().Foreground(config.EmptyColor)

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < config.Width; i++ {
		switch {
		case i < filled:
			bar.WriteString(fillStyle.Render("█"))
		case config.ShowZones && (i == passPos || i == honourPos):
			bar.WriteString(emptyStyle.Render("│"))
		default:
			bar.WriteString(emptyStyle.Render("░"))
		}
	}
	bar.WriteString("]")
	return bar.String()
}

// GradeBarWithLabel renders the bar followed by the numeric grade
func GradeBarWithLabel(grade int, config GradeBarConfig) string {
	level := GradeLevel(grade)
	bg, _ := levelColors(level)
	label := lipgloss.NewStyle().Foreground(bg).Render(fmt.Sprintf("%3d", grade))
	return fmt.Sprintf("%s %s %s", GradeBar(grade, config), label, StatusIcon(level))
}
