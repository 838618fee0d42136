// ABOUTME: Login screen with banner and username/password form
// ABOUTME: Validates locally and hands credentials to the session controller

package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/tui/icons"
	"github.com/markalston/lms-cli/internal/tui/styles"
)

// Controller is what the login screen needs from the session controller
type Controller interface {
	Login(username, password string) tea.Cmd
	ShowRegister()
	Loading() bool
}

// Model is the login screen
type Model struct {
	ctrl  Controller
	form  *huh.Form
	input forms.Credentials
	err   string
	width int
}

var (
	bannerStyle = lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(styles.Danger)
)

// Banner renders the application name as ASCII art
func Banner() string {
	return strings.TrimRight(figure.NewFigure("LMS", "cybermedium", true).String(), "\n")
}

// New creates the login screen
func New(ctrl Controller) *Model {
	m := &Model{ctrl: ctrl}
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
				Title(icons.Lock.String() + " Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.input.Password),
		).Title("Sign in").Description("ctrl+r to create an account"),
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
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+r":
			m.ctrl.ShowRegister()
			return m, nil
		case "esc":
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

// submit validates the form and starts a login. The password is cleared and
// the form rebuilt so a failed attempt can be retried.
func (m *Model) submit() tea.Cmd {
	m.err = ""
	input := m.input
	m.input.Password = ""
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

	if m.ctrl.Loading() {
		return m.form.Init()
	}
	return tea.Batch(m.ctrl.Login(strings.TrimSpace(input.Username), input.Password), m.form.Init())
}

// View implements tea.Model
func (m *Model) View() string {
	var sb strings.Builder
	sb.WriteString(bannerStyle.Render(Banner()))
	sb.WriteString("\n\n")
	sb.WriteString(m.form.View())
	if m.err != "" {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(m.err))
	}
	if m.ctrl.Loading() {
		sb.WriteString("\n")
		sb.WriteString(styles.Subtitle.Render("Signing in..."))
	}
	return sb.String()
}
