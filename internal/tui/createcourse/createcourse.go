// ABOUTME: Course creation form for teachers
// ABOUTME: Posts a new course, then asks the controller to refresh the list

package createcourse

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/tui/styles"
)

// MsgCreateFailed is shown when the server rejects the course without a message
const MsgCreateFailed = messages.CreateFailed

// API is the course creation endpoint
type API interface {
	CreateCourse(ctx context.Context, token string, course client.NewCourse) (*client.Course, error)
}

// Controller is what the form needs from the session controller
type Controller interface {
	Token() string
	Context() context.Context
	CourseCreated() tea.Cmd
}

// DoneMsg is sent when the form closes, after a successful create or on cancel
type DoneMsg struct {
	Created bool
}

type resultMsg struct {
	err error
}

// Model is the course creation form
type Model struct {
	api        API
	ctrl       Controller
	form       *huh.Form
	input      forms.CourseInput
	err        string
	submitting bool
	width      int
}

var errorStyle = lipgloss.NewStyle().Foreground(styles.Danger)

// New creates an empty course form
func New(api API, ctrl Controller) *Model {
	m := &Model{api: api, ctrl: ctrl}
	m.form = m.buildForm()
	return m
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				CharLimit(100).
				Value(&m.input.Title).
				Validate(func(string) error {
					return forms.ValidateField(m.input, "title")
				}),
			huh.NewText().
				Title("Description").
				Lines(5).
				Value(&m.input.Description).
				Validate(func(string) error {
					return forms.ValidateField(m.input, "description")
				}),
		).Title("New course").Description("esc to cancel"),
	).WithTheme(styles.FormTheme()).WithShowHelp(false)
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.form.Init()
}

// InputFocused reports that keystrokes belong to the form
func (m *Model) InputFocused() bool { return true }

// SetWidth updates the render width
func (m *Model) SetWidth(width int) {
	m.width = width
	m.form = m.form.WithWidth(min(width, 70))
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		return m, m.applyResult(msg)

	case tea.KeyMsg:
		if msg.String() == "esc" {
			if m.submitting {
				return m, nil
			}
			return m, func() tea.Msg { return DoneMsg{} }
		}
		if m.submitting {
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.submit()
	}
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	m.err = ""
	input := forms.CourseInput{
		Title:       strings.TrimSpace(m.input.Title),
		Description: strings.TrimSpace(m.input.Description),
	}

	if err := forms.Validate(input); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			m.err = verr.First()
		} else {
			m.err = err.Error()
		}
		m.form = m.buildForm()
		return m.form.Init()
	}

	m.submitting = true
	api, ctx, token := m.api, m.ctrl.Context(), m.ctrl.Token()
	course := client.NewCourse{Title: input.Title, Description: input.Description}
	return func() tea.Msg {
		_, err := api.CreateCourse(ctx, token, course)
		return resultMsg{err: err}
	}
}

func (m *Model) applyResult(msg resultMsg) tea.Cmd {
	m.submitting = false
	if msg.err != nil {
		m.err = client.MessageOr(msg.err, MsgCreateFailed)
		m.form = m.buildForm()
		return m.form.Init()
	}

	return tea.Batch(
		m.ctrl.CourseCreated(),
		func() tea.Msg { return DoneMsg{Created: true} },
	)
}

// View implements tea.Model
func (m *Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.form.View())
	if m.err != "" {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(m.err))
	}
	if m.submitting {
		sb.WriteString("\n")
		sb.WriteString(styles.Subtitle.Render("Creating course..."))
	}
	return sb.String()
}
