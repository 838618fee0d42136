// ABOUTME: Registration screen for new student accounts
// ABOUTME: Checks the form locally, then posts to the register endpoint directly

package register

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/controller"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/tui/styles"
)

// User-facing messages
const (
	MsgRegistered     = messages.Registered
	MsgRegisterFailed = messages.RegisterFailed
)

// Role is the only role the registration screen creates
const Role = messages.RegisterRole

// API is the registration endpoint
type API interface {
	Register(ctx context.Context, req client.RegisterRequest) error
}

// Controller is what the registration screen needs from the session controller
type Controller interface {
	ShowLogin()
	Notify(kind controller.NoticeKind, text string)
	Context() context.Context
}

type resultMsg struct {
	err error
}

// Model is the registration screen
type Model struct {
	api        API
	ctrl       Controller
	form       *huh.Form
	input      forms.Registration
	err        string
	submitting bool
	width      int
}

var errorStyle = lipgloss.NewStyle().Foreground(styles.Danger)

// New creates the registration screen
func New(api API, ctrl Controller) *Model {
	m := &Model{api: api, ctrl: ctrl}
	m.form = m.buildForm()
	return m
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.input.Username).
				Validate(func(string) error {
					return forms.ValidateField(m.input, "username")
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.input.Password),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&m.input.ConfirmPassword),
		).Title("Create an account").Description("New accounts are students. esc to go back"),
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
	m.form = m.form.WithWidth(min(width, 60))
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		return m, m.applyResult(msg)

	case tea.KeyMsg:
		if msg.String() == "esc" {
			if !m.submitting {
				m.ctrl.ShowLogin()
			}
			return m, nil
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

// submit validates locally and only then issues the register request
func (m *Model) submit() tea.Cmd {
	m.err = ""
	input := m.input
	m.input.Password = ""
	m.input.ConfirmPassword = ""
	m.form = m.buildForm()

	if err := forms.Validate(input); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			m.err = verr.First()
		} else {
			m.err = err.Error()
		}
		return m.form.Init()
	}

	m.submitting = true
	api, ctx := m.api, m.ctrl.Context()
	req := client.RegisterRequest{
		Username: strings.TrimSpace(input.Username),
		Password: input.Password,
		Role:     Role,
	}
	return func() tea.Msg {
		return resultMsg{err: api.Register(ctx, req)}
	}
}

func (m *Model) applyResult(msg resultMsg) tea.Cmd {
	m.submitting = false
	if msg.err != nil {
		m.err = client.MessageOr(msg.err, MsgRegisterFailed)
		return m.form.Init()
	}

	m.ctrl.Notify(controller.NoticeInfo, MsgRegistered)
	m.ctrl.ShowLogin()
	return nil
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
		sb.WriteString(styles.Subtitle.Render("Creating account..."))
	}
	return sb.String()
}
