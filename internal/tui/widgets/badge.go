// ABOUTME: Status badge widgets for quick visual status indication
// ABOUTME: Renders enrollment, role, and grade badges for course screens

package widgets

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/session"
	"github.com/markalston/lms-cli/internal/tui/icons"
)

// StatusLevel represents the severity of a status
type StatusLevel int

const (
	StatusOK StatusLevel = iota
	StatusWarning
	StatusCritical
	StatusInfo
	StatusNeutral
)

// Badge colors
var (
	BadgeOKBg      = lipgloss.Color("#10B981")
	BadgeOKFg      = lipgloss.Color("#FFFFFF")
	BadgeWarnBg    = lipgloss.Color("#F59E0B")
	BadgeWarnFg    = lipgloss.Color("#000000")
	BadgeCritBg    = lipgloss.Color("#EF4444")
	BadgeCritFg    = lipgloss.Color("#FFFFFF")
	BadgeInfoBg    = lipgloss.Color("#3B82F6")
	BadgeInfoFg    = lipgloss.Color("#FFFFFF")
	BadgeNeutralBg = lipgloss.Color("#6B7280")
	BadgeNeutralFg = lipgloss.Color("#FFFFFF")
)

// Passing and honours thresholds for a 0-100 grade
const (
	PassingGrade = forms.PassingGrade
	HonoursGrade = forms.HonoursGrade
)

func levelColors(level StatusLevel) (bg, fg lipgloss.Color) {
	switch level {
	case StatusOK:
		return BadgeOKBg, BadgeOKFg
	case StatusWarning:
		return BadgeWarnBg, BadgeWarnFg
	case StatusCritical:
		return BadgeCritBg, BadgeCritFg
	case StatusInfo:
		return BadgeInfoBg, BadgeInfoFg
	default:
		return BadgeNeutralBg, BadgeNeutralFg
	}
}

// Badge renders a colored status badge
func Badge(text string, level StatusLevel) string {
	bg, fg := levelColors(level)

	style := lipgloss.NewStyle().
		Background(bg).
		Foreground(fg).
		Padding(0, 1).
		Bold(true)

	return style.Render(text)
}

// EnrollmentBadge marks whether the student is enrolled in a course
func EnrollmentBadge(enrolled bool) string {
	if enrolled {
		return Badge(icons.Enrolled.String()+" Enrolled", StatusOK)
	}
	return Badge("Not enrolled", StatusNeutral)
}

// RoleBadge renders the signed-in user's role
func RoleBadge(role session.Role) string {
	if role == session.RoleTeacher {
		return Badge(icons.Teacher.String()+" teacher", StatusInfo)
	}
	return Badge(icons.Student.String()+" student", StatusOK)
}

// GradeLevel maps a 0-100 grade onto a status level
func GradeLevel(grade int) StatusLevel {
	switch {
	case grade < PassingGrade:
		return StatusCritical
	case grade < HonoursGrade:
		return StatusWarning
	default:
		return StatusOK
	}
}

// GradeLabel names the band a grade falls in
func GradeLabel(grade int) string {
	return forms.GradeBand(grade)
}

// StatusIcon returns the appropriate icon for a status level
func StatusIcon(level StatusLevel) string {
	bg, _ := levelColors(level)
	style := lipgloss.NewStyle().Foreground(bg)
	switch level {
	case StatusOK:
		return style.Render(icons.CheckOK.String())
	case StatusWarning:
		return style.Render(icons.Warning.String())
	case StatusCritical:
		return style.Render(icons.Critical.String())
	case StatusInfo:
		return style.Render(icons.Info.String())
	default:
		return style.Render("•")
	}
}

// StatusText returns styled status text with icon
func StatusText(text string, level StatusLevel) string {
	bg, _ := levelColors(level)
	textStyle := lipgloss.NewStyle().Foreground(bg)
	return fmt.Sprintf("%s %s", StatusIcon(level), textStyle.Render(text))
}
