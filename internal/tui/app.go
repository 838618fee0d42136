// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Keeps the active screen in step with the controller's view and routes input

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/markalston/lms-cli/internal/controller"
	"github.com/markalston/lms-cli/internal/debuglog"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/tui/courses"
	"github.com/markalston/lms-cli/internal/tui/createcourse"
	"github.com/markalston/lms-cli/internal/tui/dialog"
	"github.com/markalston/lms-cli/internal/tui/grades"
	"github.com/markalston/lms-cli/internal/tui/icons"
	"github.com/markalston/lms-cli/internal/tui/login"
	"github.com/markalston/lms-cli/internal/tui/register"
	"github.com/markalston/lms-cli/internal/tui/roster"
	"github.com/markalston/lms-cli/internal/tui/styles"
	"github.com/markalston/lms-cli/internal/tui/widgets"
)

// Layout constants
const (
	minTerminalWidth = 80 // Frame never renders narrower than this
	panelPadding     = 4  // Total horizontal padding around screen content (2 each side)
)

// API is every endpoint the screens use
type API interface {
	controller.API
	register.API
	createcourse.API
	roster.API
	grades.API
}

// screen is an active child model
type screen interface {
	tea.Model
	SetWidth(width int)
}

// inputFocuser is implemented by screens that take free text, which disables
// single-letter shortcuts while it reports true
type inputFocuser interface {
	InputFocused() bool
}

// refresher is implemented by screens that load their own data
type refresher interface {
	Refresh() tea.Cmd
}

// loader is implemented by screens with their own loading state
type loader interface {
	Loading() bool
}

// App is the root model for the TUI
type App struct {
	api     API
	ctrl    *controller.Controller
	width   int
	height  int
	spinner spinner.Model

	// Child models
	screen   screen
	view     controller.View
	courseID int
	creating *createcourse.Model
}

// New creates a new TUI application
func New(api API, tokens controller.TokenStore) *App {
	a := &App{
		api:  api,
		ctrl: controller.New(api, tokens),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Accent)),
		),
	}
	a.sync()
	return a
}

// Controller returns the session controller driving the app
func (a *App) Controller() *controller.Controller { return a.ctrl }

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.ctrl.InitializeSession(), a.screen.Init(), a.spinner.Tick)
}

// sync rebuilds the active screen when the controller's view or selected
// course has changed since the screen was built
func (a *App) sync() tea.Cmd {
	view := a.ctrl.View()
	courseID := 0
	if sel := a.ctrl.Selected(); sel != nil {
		courseID = sel.ID
	}
	if a.screen != nil && view == a.view && courseID == a.courseID {
		return nil
	}

	debuglog.Debug("screen %s -> %s (course %d)", a.view, view, courseID)
	a.view = view
	a.courseID = courseID
	a.creating = nil

	switch view {
	case controller.ViewRegister:
		a.screen = register.New(a.api, a.ctrl)
	case controller.ViewDashboard:
		a.screen = courses.New(a.ctrl)
	case controller.ViewTeacherCourse:
		a.screen = roster.New(a.api, a.ctrl, *a.ctrl.Selected())
	case controller.ViewStudentCourse:
		a.screen = grades.New(a.api, a.ctrl, *a.ctrl.Selected(), a.ctrl.Session().UserID)
	default:
		a.screen = login.New(a.ctrl)
	}
	a.screen.SetWidth(a.contentWidth())
	return a.screen.Init()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.screen.SetWidth(a.contentWidth())
		if a.creating != nil {
			a.creating.SetWidth(a.contentWidth())
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case courses.NewCourseMsg:
		if a.view != controller.ViewDashboard {
			return a, nil
		}
		a.creating = createcourse.New(a.api, a.ctrl)
		a.creating.SetWidth(a.contentWidth())
		return a, a.creating.Init()

	case createcourse.DoneMsg:
		a.creating = nil
		return a, nil

	case roster.BackMsg, grades.BackMsg:
		a.ctrl.Back()
		return a, a.sync()
	}

	if handled, cmd := a.ctrl.Update(msg); handled {
		return a, tea.Batch(cmd, a.sync())
	}

	// Forward everything else to the active child (needed for huh form internals)
	return a, a.forward(msg)
}

func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if a.creating != nil {
		var model tea.Model
		model, cmd = a.creating.Update(msg)
		a.creating = model.(*createcourse.Model)
	} else {
		var model tea.Model
		model, cmd = a.screen.Update(msg)
		a.screen = model.(screen)
	}
	return tea.Batch(cmd, a.sync())
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Handle global quit
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	// An open notice takes the next key
	if a.ctrl.Notice() != nil {
		switch msg.String() {
		case "enter", "esc", " ":
			a.ctrl.DismissNotice()
		}
		return nil
	}

	if _, ok := a.ctrl.PendingEnrollment(); ok {
		switch msg.String() {
		case "y", "enter":
			return a.ctrl.ConfirmEnrollment()
		case "n", "esc":
			a.ctrl.CancelEnrollment()
		}
		return nil
	}

	if a.creating == nil && !a.inputFocused() && a.ctrl.Session() != nil {
		switch msg.String() {
		case "q":
			return tea.Quit
		case "L":
			a.ctrl.Logout()
			return a.sync()
		case "r":
			cmds := []tea.Cmd{a.ctrl.FetchCourses()}
			if r, ok := a.screen.(refresher); ok {
				cmds = append(cmds, r.Refresh())
			}
			return tea.Batch(cmds...)
		}
	}

	return a.forward(msg)
}

func (a *App) inputFocused() bool {
	f, ok := a.screen.(inputFocuser)
	return ok && f.InputFocused()
}

func (a *App) busy() bool {
	if a.ctrl.Loading() || a.ctrl.Enrolling() {
		return true
	}
	l, ok := a.screen.(loader)
	return ok && l.Loading()
}

// frameWidth is one less than the terminal to avoid wrapping, clamped for usability
func (a *App) frameWidth() int {
	return max(a.width-1, minTerminalWidth)
}

func (a *App) contentWidth() int {
	return a.frameWidth() - panelPadding
}

func (a *App) contentHeight() int {
	return max(a.height-2, 0)
}

// View implements tea.Model
func (a *App) View() string {
	var content string
	if a.creating != nil {
		content = a.creating.View()
	} else {
		content = a.screen.View()
	}

	body := lipgloss.NewStyle().
		Padding(0, panelPadding/2).
		Height(a.contentHeight()).
		Render(content)

	if modal := a.renderModal(); modal != "" {
		body = dialog.Overlay(modal, a.frameWidth(), max(a.contentHeight(), lipgloss.Height(modal)))
	}

	return a.wrapWithFrame(body)
}

func (a *App) renderModal() string {
	if n := a.ctrl.Notice(); n != nil {
		return dialog.Notice(n.Text, n.Kind == controller.NoticeError)
	}
	if id, ok := a.ctrl.PendingEnrollment(); ok {
		title := "this course"
		if c, found := a.ctrl.CourseByID(id); found {
			title = c.Title
		}
		return dialog.Confirm(title, a.ctrl.Enrolling())
	}
	return ""
}

// renderHeader creates the header bar with app branding and session context
func (a *App) renderHeader() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := " " + icons.App.String() + " " + titleStyle.Render("Learning Platform") + " "
	if a.busy() {
		leftText += a.spinner.View() + " "
	}

	rightText := ""
	if s := a.ctrl.Session(); s != nil {
		rightText = " " + contextStyle.Render(plaintext.Truncate(plaintext.Clean(s.Username), 24)) + " " + widgets.RoleBadge(s.Role) + " "
	}
	if width-4-lipgloss.Width(leftText)-lipgloss.Width(rightText) < 0 {
		rightText = ""
	}

	fillWidth := max(width-4-lipgloss.Width(leftText)-lipgloss.Width(rightText), 0) // -4 for ╭─ and ─╮
	header := borderStyle.Render("╭─") + leftText +
		borderStyle.Render(strings.Repeat("─", fillWidth)) + rightText + borderStyle.Render("─╮")
	return header
}

// shortcutIcons decorates footer labels for navigation actions
var shortcutIcons = map[string]icons.Icon{
	"New":     icons.Add,
	"Refresh": icons.Refresh,
	"Back":    icons.Back,
	"Logout":  icons.Quit,
	"Quit":    icons.Quit,
}

// shortcuts lists the keys shown in the footer for the current view
func (a *App) shortcuts() []string {
	switch {
	case a.ctrl.Notice() != nil:
		return []string{"enter Dismiss", "ctrl+c Quit"}
	case a.hasPending():
		return []string{"y Confirm", "n Cancel"}
	case a.creating != nil:
		return []string{"tab Next", "enter Submit", "esc Cancel"}
	}

	switch a.view {
	case controller.ViewLogin:
		return []string{"enter Sign in", "ctrl+r Register", "ctrl+c Quit"}
	case controller.ViewRegister:
		return []string{"enter Submit", "esc Back", "ctrl+c Quit"}
	case controller.ViewDashboard:
		if s := a.ctrl.Session(); s != nil && s.IsTeacher() {
			return []string{"↑↓ Move", "enter Manage", "n New", "r Refresh", "L Logout"}
		}
		return []string{"↑↓ Move", "enter Open", "e Enroll", "r Refresh", "L Logout"}
	case controller.ViewTeacherCourse:
		if a.inputFocused() {
			return []string{"tab Next", "enter Submit", "esc Cancel"}
		}
		return []string{"↑↓ Move", "enter Grade", "r Refresh", "esc Back", "L Logout"}
	case controller.ViewStudentCourse:
		return []string{"e Enroll", "r Refresh", "esc Back", "L Logout"}
	}
	return nil
}

func (a *App) hasPending() bool {
	_, ok := a.ctrl.PendingEnrollment()
	return ok
}

// renderFooter creates the footer with keyboard shortcuts and refresh status
func (a *App) renderFooter() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	shortcuts := a.shortcuts()
	styled := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		if len(parts) == 2 {
			label := parts[1]
			if icon, ok := shortcutIcons[label]; ok {
				label = icon.String() + " " + label
			}
			styled = append(styled, keyStyle.Render(parts[0])+" "+labelStyle.Render(label))
		} else {
			styled = append(styled, s)
		}
	}
	leftText := " " + strings.Join(styled, "  ") + " "

	rightText := ""
	if refreshed := a.ctrl.RefreshedAt(); !refreshed.IsZero() && a.ctrl.Session() != nil {
		rightText = " " + statusStyle.Render("Updated "+humanize.Time(refreshed)) + " "
	}
	if width-4-lipgloss.Width(leftText)-lipgloss.Width(rightText) < 0 {
		rightText = ""
	}

	fillWidth := max(width-4-lipgloss.Width(leftText)-lipgloss.Width(rightText), 0) // -4 for ╰─ and ─╯
	footer := borderStyle.Render("╰─") + leftText +
		borderStyle.Render(strings.Repeat("─", fillWidth)) + rightText + borderStyle.Render("─╯")
	return footer
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// Run starts the TUI
func Run(api API, tokens controller.TokenStore) error {
	p := tea.NewProgram(
		New(api, tokens),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
