// ABOUTME: Course dashboard listing every course visible to the session
// ABOUTME: Students enroll from here; teachers open rosters and create courses

package courses

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/session"
	"github.com/markalston/lms-cli/internal/tui/icons"
	"github.com/markalston/lms-cli/internal/tui/styles"
	"github.com/markalston/lms-cli/internal/tui/widgets"
)

// User-facing messages
const (
	MsgEmpty   = messages.NoCourses
	MsgLoading = messages.LoadingCourses
)

// NewCourseMsg asks the app to open the course creation form
type NewCourseMsg struct{}

// Controller is what the dashboard needs from the session controller
type Controller interface {
	Session() *session.Session
	Courses() []client.Course
	Loading() bool
	Err() string
	Enrolling() bool
	SelectCourse(course client.Course)
	RequestEnrollment(courseID int)
}

// Model is the course dashboard
type Model struct {
	ctrl   Controller
	cursor int
	width  int
}

var (
	descStyle    = lipgloss.NewStyle().Foreground(styles.Muted)
	metaStyle    = lipgloss.NewStyle().Foreground(styles.Info)
	actionStyle  = lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true)
	disabledText = lipgloss.NewStyle().Foreground(styles.Muted).Italic(true)
)

// New creates the dashboard
func New(ctrl Controller) *Model {
	return &Model{ctrl: ctrl}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// SetWidth updates the render width
func (m *Model) SetWidth(width int) {
	m.width = width
}

// Cursor returns the highlighted row
func (m *Model) Cursor() int { return m.cursor }

func (m *Model) isTeacher() bool {
	s := m.ctrl.Session()
	return s != nil && s.IsTeacher()
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	courses := m.ctrl.Courses()
	if m.cursor >= len(courses) {
		m.cursor = max(0, len(courses)-1)
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(courses)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(0, len(courses)-1)
	case "enter":
		if len(courses) > 0 {
			m.ctrl.SelectCourse(courses[m.cursor])
		}
	case "e":
		if len(courses) > 0 && !m.isTeacher() && !m.ctrl.Enrolling() && !courses[m.cursor].IsEnrolled() {
			m.ctrl.RequestEnrollment(courses[m.cursor].ID)
		}
	case "n":
		if m.isTeacher() {
			return m, func() tea.Msg { return NewCourseMsg{} }
		}
	}

	return m, nil
}

// View implements tea.Model
func (m *Model) View() string {
	var sb strings.Builder
	courses := m.ctrl.Courses()
	teacher := m.isTeacher()

	title := "Available Courses"
	if teacher {
		title = "My Courses"
	}
	sb.WriteString(styles.Title.Render(icons.Course.String() + " " + title))
	sb.WriteString("\n")
	sb.WriteString(m.renderSummary(courses, teacher))
	sb.WriteString("\n\n")

	if errText := m.ctrl.Err(); errText != "" {
		sb.WriteString(styles.Banner.Render(icons.Critical.String() + " " + errText))
		sb.WriteString("\n\n")
	}

	if m.ctrl.Loading() && len(courses) == 0 {
		sb.WriteString(styles.Subtitle.Render(MsgLoading))
		return sb.String()
	}

	if len(courses) == 0 {
		sb.WriteString(styles.Subtitle.Render(MsgEmpty))
		return sb.String()
	}

	for i, course := range courses {
		sb.WriteString(m.renderRow(course, i == m.cursor, teacher))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m *Model) renderSummary(courses []client.Course, teacher bool) string {
	cfg := widgets.DefaultStatBlockConfig()
	total := widgets.CountBlock(icons.Course, "Courses", len(courses), "visible to you", cfg)
	if teacher {
		return total
	}

	enrolled := 0
	for _, c := range courses {
		if c.IsEnrolled() {
			enrolled++
		}
	}
	mine := widgets.CountBlock(icons.Enrolled, "Enrolled", enrolled, "your courses", cfg)
	return lipgloss.JoinHorizontal(lipgloss.Top, total, " ", mine)
}

func (m *Model) renderRow(course client.Course, selected, teacher bool) string {
	width := max(m.width-6, 40)

	prefix := "  "
	titleStyle := styles.Normal
	if selected {
		prefix = "> "
		titleStyle = styles.Selected
	}

	var line strings.Builder
	line.WriteString(prefix)
	line.WriteString(titleStyle.Render(plaintext.Truncate(plaintext.Clean(course.Title), width/2)))

	if teacher {
		line.WriteString("  ")
		line.WriteString(actionStyle.Render("[Manage course]"))
	} else {
		if name := plaintext.Clean(course.TeacherName); name != "" {
			line.WriteString("  ")
			line.WriteString(metaStyle.Render(icons.Teacher.String() + " " + name))
		}
		line.WriteString("  ")
		switch {
		case course.IsEnrolled():
			line.WriteString(widgets.EnrollmentBadge(true))
		case m.ctrl.Enrolling():
			line.WriteString(disabledText.Render("[Enroll]"))
		default:
			line.WriteString(actionStyle.Render("[Enroll]"))
		}
	}

	desc := plaintext.Truncate(plaintext.FromHTML(course.Description), width)
	return fmt.Sprintf("%s\n    %s", line.String(), descStyle.Render(desc))
}
