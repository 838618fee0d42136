// ABOUTME: Teacher course view listing enrolled students and their grades
// ABOUTME: Loads its own roster and submits grades for the highlighted student

package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/controller"
	"github.com/markalston/lms-cli/internal/debuglog"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/tui/icons"
	"github.com/markalston/lms-cli/internal/tui/styles"
	"github.com/markalston/lms-cli/internal/tui/widgets"
)

// User-facing messages
const (
	MsgLoadFailed      = messages.LoadRosterFailed
	MsgGradeFailed     = messages.GradeFailed
	MsgNoStudents      = messages.NoStudents
	MsgLoadingStudents = messages.LoadingStudents
)

// API is the roster and grading endpoints
type API interface {
	Roster(ctx context.Context, token string, courseID int) ([]client.Student, error)
	SubmitGrade(ctx context.Context, token string, sub client.GradeSubmission) error
}

// Controller is what the roster needs from the session controller
type Controller interface {
	Token() string
	Context() context.Context
	GradeSubmitted() tea.Cmd
	Notify(kind controller.NoticeKind, text string)
}

// BackMsg asks the app to return to the dashboard
type BackMsg struct{}

type (
	loadedMsg struct {
		courseID int
		seq      uint64
		students []client.Student
		err      error
	}

	gradedMsg struct {
		courseID  int
		studentID int
		err       error
	}
)

// gradeForm is the open grading form for one student
type gradeForm struct {
	student  client.Student
	form     *huh.Form
	grade    string
	feedback string
	err      string
}

// Model is the teacher's course detail view
type Model struct {
	api    API
	ctrl   Controller
	course client.Course
	now    func() time.Time

	students   []client.Student
	loading    bool
	err        string
	seq        uint64
	cursor     int
	grading    *gradeForm
	submitting bool
	width      int
}

var (
	descStyle    = lipgloss.NewStyle().Foreground(styles.Muted)
	errorStyle   = lipgloss.NewStyle().Foreground(styles.Danger)
	headerStyle  = lipgloss.NewStyle().Foreground(styles.Muted).Bold(true)
	feedbackText = lipgloss.NewStyle().Foreground(styles.Muted).Italic(true)
)

// New creates the roster view for course
func New(api API, ctrl Controller, course client.Course) *Model {
	return &Model{
		api:      api,
		ctrl:     ctrl,
		course:   course,
		now:      time.Now,
		students: []client.Student{},
	}
}

// Init loads the roster
func (m *Model) Init() tea.Cmd {
	return m.Refresh()
}

// CourseID returns the course this view shows
func (m *Model) CourseID() int { return m.course.ID }

// Students returns the loaded roster
func (m *Model) Students() []client.Student { return m.students }

// Loading reports whether a roster fetch is in flight
func (m *Model) Loading() bool { return m.loading }

// Err returns the roster load error, if any
func (m *Model) Err() string { return m.err }

// Grading reports whether the grade form is open
func (m *Model) Grading() bool { return m.grading != nil }

// InputFocused reports whether keystrokes belong to the grade form
func (m *Model) InputFocused() bool { return m.grading != nil }

// SetWidth updates the render width
func (m *Model) SetWidth(width int) {
	m.width = width
}

// Refresh reloads the roster. Any earlier fetch still in flight is superseded.
func (m *Model) Refresh() tea.Cmd {
	m.seq++
	m.loading = true
	m.err = ""

	seq, courseID := m.seq, m.course.ID
	api, ctx, token := m.api, m.ctrl.Context(), m.ctrl.Token()
	return func() tea.Msg {
		students, err := api.Roster(ctx, token, courseID)
		return loadedMsg{courseID: courseID, seq: seq, students: students, err: err}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.applyLoaded(msg)
		return m, nil

	case gradedMsg:
		return m, m.applyGraded(msg)

	case tea.KeyMsg:
		if m.grading != nil {
			return m, m.updateGrading(msg)
		}
		return m, m.updateList(msg)
	}

	if m.grading != nil {
		return m, m.forwardToForm(msg)
	}
	return m, nil
}

func (m *Model) applyLoaded(msg loadedMsg) {
	if msg.courseID != m.course.ID || msg.seq != m.seq {
		debuglog.Debug("dropping stale roster for course %d (seq %d)", msg.courseID, msg.seq)
		return
	}

	m.loading = false
	if msg.err != nil {
		debuglog.Error("load roster", msg.err)
		m.err = MsgLoadFailed
		return
	}

	m.students = msg.students
	if m.students == nil {
		m.students = []client.Student{}
	}
	if m.cursor >= len(m.students) {
		m.cursor = max(0, len(m.students)-1)
	}
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.students)-1 {
			m.cursor++
		}
	case "enter", "g":
		if len(m.students) > 0 && !m.submitting {
			return m.openGradeForm(m.students[m.cursor])
		}
	case "esc", "b":
		return func() tea.Msg { return BackMsg{} }
	}
	return nil
}

func (m *Model) openGradeForm(student client.Student) tea.Cmd {
	g := &gradeForm{student: student}
	if latest, ok := student.LatestGrade(); ok {
		g.grade = strconv.Itoa(latest.Value)
	}
	m.grading = g
	g.form = m.buildGradeForm(g)
	return g.form.Init()
}

func (m *Model) buildGradeForm(g *gradeForm) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Grade (0-100)").
				CharLimit(3).
				Value(&g.grade).
				Validate(func(s string) error {
					n, err := forms.ParseGrade(s)
					if err != nil {
						return err
					}
					return forms.ValidateField(forms.GradeInput{Grade: n, Feedback: "-"}, "grade")
				}),
			huh.NewText().
				Title("Feedback").
				Lines(3).
				Value(&g.feedback),
		).Title("Grade " + plaintext.Clean(g.student.Username)).Description("esc to cancel"),
	).WithTheme(styles.FormTheme()).WithShowHelp(false).WithWidth(min(max(m.width-8, 40), 70))
}

func (m *Model) updateGrading(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "esc" {
		if !m.submitting {
			m.grading = nil
		}
		return nil
	}
	if m.submitting {
		return nil
	}
	return m.forwardToForm(msg)
}

func (m *Model) forwardToForm(msg tea.Msg) tea.Cmd {
	g := m.grading
	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}
	if g.form.State == huh.StateCompleted {
		return m.submitGrade()
	}
	return cmd
}

// submitGrade validates the open form and posts the grade
func (m *Model) submitGrade() tea.Cmd {
	g := m.grading
	g.err = ""

	input, err := m.gradeInput(g)
	if err != nil {
		g.err = err.Error()
		g.form = m.buildGradeForm(g)
		return g.form.Init()
	}

	m.submitting = true
	sub := client.GradeSubmission{
		StudentID: g.student.ID,
		CourseID:  m.course.ID,
		Grade:     input.Grade,
		Feedback:  input.Feedback,
	}
	api, ctx, token := m.api, m.ctrl.Context(), m.ctrl.Token()
	return func() tea.Msg {
		err := api.SubmitGrade(ctx, token, sub)
		return gradedMsg{courseID: sub.CourseID, studentID: sub.StudentID, err: err}
	}
}

func (m *Model) gradeInput(g *gradeForm) (forms.GradeInput, error) {
	n, err := forms.ParseGrade(g.grade)
	if err != nil {
		return forms.GradeInput{}, err
	}
	input := forms.GradeInput{Grade: n, Feedback: strings.TrimSpace(g.feedback)}
	if err := forms.Validate(input); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			return forms.GradeInput{}, errors.New(verr.First())
		}
		return forms.GradeInput{}, err
	}
	return input, nil
}

func (m *Model) applyGraded(msg gradedMsg) tea.Cmd {
	if msg.courseID != m.course.ID {
		return nil
	}
	m.submitting = false

	if msg.err != nil {
		debuglog.Error("submit grade", msg.err)
		m.ctrl.Notify(controller.NoticeError, client.MessageOr(msg.err, MsgGradeFailed))
		if m.grading != nil {
			m.grading.form = m.buildGradeForm(m.grading)
			return m.grading.form.Init()
		}
		return nil
	}

	m.grading = nil
	return tea.Batch(m.Refresh(), m.ctrl.GradeSubmitted())
}

// View implements tea.Model
func (m *Model) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(icons.Roster.String() + " " + plaintext.Clean(m.course.Title)))
	sb.WriteString("\n")
	if desc := plaintext.FromHTML(m.course.Description); desc != "" {
		sb.WriteString(descStyle.Render(plaintext.Truncate(desc, max(m.width-4, 40))))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if m.grading != nil {
		sb.WriteString(m.renderGradeForm())
		return sb.String()
	}

	if m.err != "" {
		sb.WriteString(styles.Banner.Render(icons.Critical.String() + " " + m.err))
		sb.WriteString("\n\n")
	}

	if m.loading && len(m.students) == 0 {
		sb.WriteString(styles.Subtitle.Render(MsgLoadingStudents))
		return sb.String()
	}

	sb.WriteString(widgets.CountBlock(icons.Student, "Students", len(m.students), "enrolled", widgets.DefaultStatBlockConfig()))
	sb.WriteString("\n\n")

	if len(m.students) == 0 {
		if m.err == "" {
			sb.WriteString(styles.Subtitle.Render(MsgNoStudents))
		}
		return sb.String()
	}

	sb.WriteString(headerStyle.Render(fmt.Sprintf("  %-20s %-30s %s", "STUDENT", "LATEST GRADE", "GRADED")))
	sb.WriteString("\n")
	for i, s := range m.students {
		sb.WriteString(m.renderStudent(s, i == m.cursor))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m *Model) renderStudent(s client.Student, selected bool) string {
	prefix := "  "
	nameStyle := styles.Normal
	if selected {
		prefix = "> "
		nameStyle = styles.Selected
	}

	name := fmt.Sprintf("%-20s", plaintext.Truncate(plaintext.Clean(s.Username), 20))
	row := prefix + nameStyle.Render(name) + " "

	latest, ok := s.LatestGrade()
	if !ok {
		return row + styles.Subtitle.UnsetMarginBottom().Render("not graded")
	}

	cfg := widgets.DefaultGradeBarConfig()
	cfg.Width = 20
	row += widgets.GradeBarWithLabel(latest.Value, cfg)

	row += "  " + descStyle.Render(m.gradedAt(latest))
	if len(s.Grades) > 1 && !selected {
		row += "  " + descStyle.Render(fmt.Sprintf("(%d grades)", len(s.Grades)))
	}
	if fb := plaintext.Clean(latest.Feedback); fb != "" {
		row += "\n      " + feedbackText.Render(plaintext.Truncate(fb, max(m.width-10, 40)))
	}
	if selected && len(s.Grades) > 1 {
		row += m.renderHistory(s.Grades)
	}
	return row
}

// renderHistory lists every grade for the highlighted student, newest first
func (m *Model) renderHistory(grades []client.Grade) string {
	var sb strings.Builder
	sb.WriteString("\n      " + headerStyle.Render(fmt.Sprintf("History (%d grades)", len(grades))))
	for i := len(grades) - 1; i >= 0; i-- {
		g := grades[i]
		line := fmt.Sprintf("%3d  %-16s %s",
			g.Value,
			m.gradedAt(g),
			plaintext.Truncate(plaintext.Clean(g.Feedback), max(m.width-34, 30)))
		sb.WriteString("\n      " + descStyle.Render(line))
	}
	return sb.String()
}

func (m *Model) gradedAt(g client.Grade) string {
	if t, ok := g.Time(); ok {
		return humanize.RelTime(t, m.now().UTC(), "ago", "from now")
	}
	return g.GradedAt
}

func (m *Model) renderGradeForm() string {
	g := m.grading
	var sb strings.Builder
	sb.WriteString(g.form.View())
	if g.err != "" {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(g.err))
	}
	if m.submitting {
		sb.WriteString("\n")
		sb.WriteString(styles.Subtitle.Render("Submitting grade..."))
	}
	return styles.ActivePanel.Render(sb.String())
}
