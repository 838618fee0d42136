// ABOUTME: Student course view showing the signed-in student's own grades
// ABOUTME: Read-only list with a grade bar, feedback, and grade history trend

package grades

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/debuglog"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/tui/icons"
	"github.com/markalston/lms-cli/internal/tui/styles"
	"github.com/markalston/lms-cli/internal/tui/widgets"
)

// User-facing messages
const (
	MsgLoadFailed = messages.LoadGradesFailed
	MsgNoGrades   = messages.NoGrades
	MsgLoading    = messages.LoadingGrades
)

// API is the student grades endpoint
type API interface {
	StudentGrades(ctx context.Context, token string, courseID, studentID int) ([]client.Grade, error)
}

// Controller is what the grade view needs from the session controller
type Controller interface {
	Token() string
	Context() context.Context
	Enrolling() bool
	RequestEnrollment(courseID int)
	CourseByID(id int) (client.Course, bool)
}

// BackMsg asks the app to return to the dashboard
type BackMsg struct{}

type loadedMsg struct {
	courseID int
	seq      uint64
	grades   []client.Grade
	err      error
}

// Model is the student's course detail view
type Model struct {
	api       API
	ctrl      Controller
	course    client.Course
	studentID int
	now       func() time.Time

	grades  []client.Grade
	loading bool
	err     string
	seq     uint64
	width   int
}

var (
	descStyle     = lipgloss.NewStyle().Foreground(styles.Muted)
	feedbackStyle = lipgloss.NewStyle().Foreground(styles.Text)
	hintStyle     = lipgloss.NewStyle().Foreground(styles.Warning)
)

// New creates the grade view for the student in course
func New(api API, ctrl Controller, course client.Course, studentID int) *Model {
	return &Model{
		api:       api,
		ctrl:      ctrl,
		course:    course,
		studentID: studentID,
		now:       time.Now,
		grades:    []client.Grade{},
	}
}

// Init loads the grades
func (m *Model) Init() tea.Cmd {
	return m.Refresh()
}

// CourseID returns the course this view shows
func (m *Model) CourseID() int { return m.course.ID }

// Grades returns the loaded grades, newest first
func (m *Model) Grades() []client.Grade { return m.grades }

// Loading reports whether a fetch is in flight
func (m *Model) Loading() bool { return m.loading }

// Err returns the load error, if any
func (m *Model) Err() string { return m.err }

// SetWidth updates the render width
func (m *Model) SetWidth(width int) {
	m.width = width
}

// Refresh reloads the grades. Any earlier fetch still in flight is superseded.
func (m *Model) Refresh() tea.Cmd {
	m.seq++
	m.loading = true
	m.err = ""

	seq, courseID, studentID := m.seq, m.course.ID, m.studentID
	api, ctx, token := m.api, m.ctrl.Context(), m.ctrl.Token()
	return func() tea.Msg {
		grades, err := api.StudentGrades(ctx, token, courseID, studentID)
		return loadedMsg{courseID: courseID, seq: seq, grades: grades, err: err}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.applyLoaded(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "b":
			return m, func() tea.Msg { return BackMsg{} }
		case "e":
			if !m.enrolled() && !m.ctrl.Enrolling() {
				m.ctrl.RequestEnrollment(m.course.ID)
			}
		}
	}
	return m, nil
}

func (m *Model) applyLoaded(msg loadedMsg) {
	if msg.courseID != m.course.ID || msg.seq != m.seq {
		debuglog.Debug("dropping stale grades for course %d (seq %d)", msg.courseID, msg.seq)
		return
	}

	m.loading = false
	if msg.err != nil {
		debuglog.Error("load grades", msg.err)
		m.err = MsgLoadFailed
		return
	}
	m.grades = msg.grades
	if m.grades == nil {
		m.grades = []client.Grade{}
	}
}

// enrolled uses the controller's latest course list, which is refreshed after enrolling
func (m *Model) enrolled() bool {
	if c, ok := m.ctrl.CourseByID(m.course.ID); ok {
		return c.IsEnrolled()
	}
	return m.course.IsEnrolled()
}

// View implements tea.Model
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Course.String() + " " + plaintext.Clean(m.course.Title)))
	sb.WriteString("\n")
	if name := plaintext.Clean(m.course.TeacherName); name != "" {
		sb.WriteString(descStyle.Render(icons.Teacher.String() + " " + name))
		sb.WriteString("\n")
	}
	if desc := plaintext.FromHTML(m.course.Description); desc != "" {
		sb.WriteString(descStyle.Render(plaintext.Truncate(desc, max(m.width-4, 40))))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if !m.enrolled() {
		if m.ctrl.Enrolling() {
			sb.WriteString(hintStyle.Render("Enrolling..."))
		} else {
			sb.WriteString(hintStyle.Render("You are not enrolled in this course. Press e to enroll."))
		}
		sb.WriteString("\n\n")
	}

	if m.err != "" {
		sb.WriteString(styles.Banner.Render(icons.Critical.String() + " " + m.err))
		sb.WriteString("\n")
		return sb.String()
	}

	if m.loading && len(m.grades) == 0 {
		sb.WriteString(styles.Subtitle.Render(MsgLoading))
		return sb.String()
	}

	if len(m.grades) == 0 {
		sb.WriteString(styles.Subtitle.Render(MsgNoGrades))
		return sb.String()
	}

	sb.WriteString(m.renderSummary())
	sb.WriteString("\n\n")
	for _, g := range m.grades {
		sb.WriteString(m.renderGrade(g))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderSummary() string {
	// grades arrive newest first; the trend reads oldest to newest
	history := make([]int, len(m.grades))
	total := 0
	for i, g := range m.grades {
		history[len(m.grades)-1-i] = g.Value
		total += g.Value
	}
	avg := total / len(m.grades)

	cfg := widgets.DefaultStatBlockConfig()
	latest := widgets.StatBlock(icons.Grade, "Latest", fmt.Sprintf("%d/100", m.grades[0].Value), widgets.GradeLabel(m.grades[0].Value), cfg)
	average := widgets.StatBlock(icons.Grade, "Average", fmt.Sprintf("%d/100", avg), humanize.Comma(int64(len(m.grades)))+" graded", cfg)
	trend := widgets.StatBlock(icons.Refresh, "Trend", widgets.GradeTrend(history, cfg.Width-4), "oldest to newest", cfg)

	return lipgloss.JoinHorizontal(lipgloss.Top, latest, " ", average, " ", trend)
}

func (m *Model) renderGrade(g client.Grade) string {
	cfg := widgets.DefaultGradeBarConfig()
	line := widgets.GradeBarWithLabel(g.Value, cfg)

	when := g.GradedAt
	if t, ok := g.Time(); ok {
		when = humanize.RelTime(t, m.now().UTC(), "ago", "from now")
	}
	line += "  " + descStyle.Render(when)

	if fb := plaintext.Clean(g.Feedback); fb != "" {
		line += "\n    " + feedbackStyle.Render(plaintext.Truncate(fb, max(m.width-8, 40)))
	}
	return line
}
