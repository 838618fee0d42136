// ABOUTME: Session and view state for the terminal client
// ABOUTME: Owns the current user, active view, course list and transient UI flags

package controller

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/debuglog"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/session"
	"github.com/markalston/lms-cli/internal/store"
)

// User-facing messages
const (
	MsgLoginFailed      = messages.LoginFailed
	MsgLoadCoursesError = messages.LoadCoursesError
	MsgEnrolled         = messages.Enrolled
	MsgEnrollFailed     = messages.EnrollFailed
	MsgCourseCreated    = messages.CourseCreated
	MsgGradeSubmitted   = messages.GradeSubmitted
)

// View is the screen currently shown. Exactly one is active.
type View int

const (
	ViewLogin View = iota
	ViewRegister
	ViewDashboard
	ViewTeacherCourse
	ViewStudentCourse
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewRegister:
		return "register"
	case ViewDashboard:
		return "dashboard"
	case ViewTeacherCourse:
		return "teacherCourseDetail"
	case ViewStudentCourse:
		return "studentCourseDetail"
	default:
		return "unknown"
	}
}

// NoticeKind distinguishes success and failure alerts
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// Notice is a modal alert shown after an action completes
type Notice struct {
	Kind NoticeKind
	Text string
}

// API is the subset of the API client the controller drives
type API interface {
	Login(ctx context.Context, username, password string) (string, error)
	Courses(ctx context.Context, token string) ([]client.Course, error)
	FreshCourses(ctx context.Context, token string) ([]client.Course, error)
	Enroll(ctx context.Context, token string, courseID int) error
}

// TokenStore persists the bearer token between runs
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Result messages. Each carries the session generation it was issued under;
// results from an earlier generation are dropped.
type (
	restoreResultMsg struct {
		gen     uint64
		token   string
		courses []client.Course
		err     error
	}

	loginResultMsg struct {
		gen   uint64
		token string
		err   error
	}

	coursesResultMsg struct {
		gen     uint64
		seq     uint64
		courses []client.Course
		err     error
	}

	enrollResultMsg struct {
		gen      uint64
		courseID int
		err      error
	}
)

// Controller holds all session and view state. It is owned by the bubbletea
// update loop; network work is returned as tea.Cmd and applied through Update.
type Controller struct {
	api   API
	store TokenStore
	now   func() time.Time

	token   string
	session *session.Session
	view    View
	courses []client.Course

	loading     bool
	err         string
	selected    *client.Course
	pending     *int
	enrolling   bool
	notice      *Notice
	refreshedAt time.Time

	gen      uint64
	fetchSeq uint64
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a controller in the login view with no session
func New(api API, tokens TokenStore) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:     api,
		store:   tokens,
		now:     time.Now,
		view:    ViewLogin,
		courses: []client.Course{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// View returns the active view
func (c *Controller) View() View { return c.view }

// Session returns the decoded identity, or nil when logged out
func (c *Controller) Session() *session.Session { return c.session }

// Token returns the bearer token of the active session
func (c *Controller) Token() string { return c.token }

// Context is cancelled when the session ends. Views use it for their own requests.
func (c *Controller) Context() context.Context { return c.ctx }

// Courses returns the current course list, never nil
func (c *Controller) Courses() []client.Course { return c.courses }

// Loading reports whether a session restore, login or course fetch is in flight
func (c *Controller) Loading() bool { return c.loading }

// Err returns the course list error banner text
func (c *Controller) Err() string { return c.err }

// Selected returns the course shown in a detail view
func (c *Controller) Selected() *client.Course { return c.selected }

// PendingEnrollment returns the course awaiting enrollment confirmation
func (c *Controller) PendingEnrollment() (int, bool) {
	if c.pending == nil {
		return 0, false
	}
	return *c.pending, true
}

// Enrolling reports whether an enrollment request is in flight
func (c *Controller) Enrolling() bool { return c.enrolling }

// Notice returns the alert to display, or nil
func (c *Controller) Notice() *Notice { return c.notice }

// RefreshedAt is when the course list was last replaced
func (c *Controller) RefreshedAt() time.Time { return c.refreshedAt }

// CourseByID finds a course in the current list
func (c *Controller) CourseByID(id int) (client.Course, bool) {
	for _, course := range c.courses {
		if course.ID == id {
			return course, true
		}
	}
	return client.Course{}, false
}

// Notify shows an alert
func (c *Controller) Notify(kind NoticeKind, text string) {
	c.notice = &Notice{Kind: kind, Text: text}
}

// DismissNotice closes the current alert
func (c *Controller) DismissNotice() {
	c.notice = nil
}

// newGeneration cancels requests of the previous session and starts a new scope
func (c *Controller) newGeneration() {
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.gen++
}

// InitializeSession restores a persisted session. Without a saved token the
// login view is shown and no request is made.
func (c *Controller) InitializeSession() tea.Cmd {
	token, err := c.store.Load()
	if err != nil {
		if !errors.Is(err, store.ErrNoToken) {
			debuglog.Error("load token", err)
		}
		c.view = ViewLogin
		return nil
	}

	c.newGeneration()
	c.loading = true
	gen, ctx, api := c.gen, c.ctx, c.api

	return func() tea.Msg {
		courses, err := api.Courses(ctx, token)
		return restoreResultMsg{gen: gen, token: token, courses: courses, err: err}
	}
}

// Login submits credentials. On success the token is persisted and the course list fetched.
func (c *Controller) Login(username, password string) tea.Cmd {
	if c.loading || c.session != nil {
		return nil
	}

	c.newGeneration()
	c.loading = true
	gen, ctx, api := c.gen, c.ctx, c.api

	return func() tea.Msg {
		token, err := api.Login(ctx, username, password)
		return loginResultMsg{gen: gen, token: token, err: err}
	}
}

// Logout ends the session locally. No request is made.
func (c *Controller) Logout() {
	if err := c.store.Clear(); err != nil {
		debuglog.Error("clear token", err)
	}

	c.newGeneration()
	c.token = ""
	c.session = nil
	c.courses = []client.Course{}
	c.selected = nil
	c.pending = nil
	c.enrolling = false
	c.loading = false
	c.err = ""
	c.notice = nil
	c.refreshedAt = time.Time{}
	c.view = ViewLogin
}

// FetchCourses replaces the course list from the server
func (c *Controller) FetchCourses() tea.Cmd {
	if c.session == nil {
		return nil
	}
	return c.fetchCourses(c.api.Courses)
}

// refreshCourses refetches after a mutation. It never joins a fetch that was
// sent before the mutation was acknowledged.
func (c *Controller) refreshCourses() tea.Cmd {
	if c.session == nil {
		return nil
	}
	return c.fetchCourses(c.api.FreshCourses)
}

func (c *Controller) fetchCourses(get func(context.Context, string) ([]client.Course, error)) tea.Cmd {
	c.fetchSeq++
	c.loading = true
	c.err = ""
	gen, seq, ctx, token := c.gen, c.fetchSeq, c.ctx, c.token

	return func() tea.Msg {
		courses, err := get(ctx, token)
		return coursesResultMsg{gen: gen, seq: seq, courses: courses, err: err}
	}
}

// SelectCourse opens the detail view matching the session's role
func (c *Controller) SelectCourse(course client.Course) {
	if c.session == nil {
		return
	}

	selected := course
	c.selected = &selected
	if c.session.IsTeacher() {
		c.view = ViewTeacherCourse
	} else {
		c.view = ViewStudentCourse
	}
}

// Back returns from a course detail view to the dashboard
func (c *Controller) Back() {
	if c.view == ViewTeacherCourse || c.view == ViewStudentCourse {
		c.selected = nil
		c.view = ViewDashboard
	}
}

// ShowRegister switches from login to registration
func (c *Controller) ShowRegister() {
	if c.view == ViewLogin {
		c.view = ViewRegister
	}
}

// ShowLogin switches from registration to login
func (c *Controller) ShowLogin() {
	if c.view == ViewRegister {
		c.view = ViewLogin
	}
}

// RequestEnrollment asks for confirmation before enrolling in courseID
func (c *Controller) RequestEnrollment(courseID int) {
	if c.session == nil || c.enrolling {
		return
	}
	id := courseID
	c.pending = &id
}

// CancelEnrollment dismisses the confirmation prompt
func (c *Controller) CancelEnrollment() {
	if c.enrolling {
		return
	}
	c.pending = nil
}

// ConfirmEnrollment enrolls in the pending course. Repeated confirms while
// the request is in flight are ignored.
func (c *Controller) ConfirmEnrollment() tea.Cmd {
	if c.enrolling || c.pending == nil || c.session == nil {
		return nil
	}

	c.enrolling = true
	courseID := *c.pending
	gen, ctx, api, token := c.gen, c.ctx, c.api, c.token

	return func() tea.Msg {
		err := api.Enroll(ctx, token, courseID)
		return enrollResultMsg{gen: gen, courseID: courseID, err: err}
	}
}

// CourseCreated is called after a teacher creates a course
func (c *Controller) CourseCreated() tea.Cmd {
	c.Notify(NoticeInfo, MsgCourseCreated)
	return c.refreshCourses()
}

// GradeSubmitted is called after a teacher submits a grade
func (c *Controller) GradeSubmitted() tea.Cmd {
	c.Notify(NoticeInfo, MsgGradeSubmitted)
	return c.refreshCourses()
}

// Update applies a result message. It reports whether msg belonged to the controller.
func (c *Controller) Update(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case restoreResultMsg:
		if msg.gen != c.gen {
			return true, nil
		}
		c.applyRestore(msg)
		return true, nil

	case loginResultMsg:
		if msg.gen != c.gen {
			return true, nil
		}
		return true, c.applyLogin(msg)

	case coursesResultMsg:
		if msg.gen != c.gen || msg.seq != c.fetchSeq {
			debuglog.Debug("dropping stale course list (gen %d seq %d)", msg.gen, msg.seq)
			return true, nil
		}
		c.applyCourses(msg)
		return true, nil

	case enrollResultMsg:
		if msg.gen != c.gen {
			return true, nil
		}
		return true, c.applyEnroll(msg)
	}

	return false, nil
}

func (c *Controller) applyRestore(msg restoreResultMsg) {
	c.loading = false

	if msg.err != nil {
		debuglog.Error("restore session", msg.err)
		c.discardToken()
		return
	}

	sess, err := session.Decode(msg.token)
	if err != nil {
		debuglog.Error("restore session", err)
		c.discardToken()
		return
	}

	c.token = msg.token
	c.session = &sess
	c.courses = orEmpty(msg.courses)
	c.refreshedAt = c.now()
	c.view = ViewDashboard
	debuglog.Log("session restored for %s", sess.Username)
}

func (c *Controller) discardToken() {
	if err := c.store.Clear(); err != nil {
		debuglog.Error("clear token", err)
	}
	c.token = ""
	c.session = nil
	c.view = ViewLogin
}

func (c *Controller) applyLogin(msg loginResultMsg) tea.Cmd {
	c.loading = false

	if msg.err != nil {
		debuglog.Error("login", msg.err)
		c.Notify(NoticeError, client.MessageOr(msg.err, MsgLoginFailed))
		return nil
	}

	sess, err := session.Decode(msg.token)
	if err != nil {
		debuglog.Error("login", err)
		c.Notify(NoticeError, MsgLoginFailed)
		return nil
	}

	if err := c.store.Save(msg.token); err != nil {
		debuglog.Error("save token", err)
	}

	c.token = msg.token
	c.session = &sess
	c.view = ViewDashboard
	debuglog.Log("logged in as %s (%s)", sess.Username, sess.Role)
	return c.FetchCourses()
}

func (c *Controller) applyCourses(msg coursesResultMsg) {
	c.loading = false

	if msg.err != nil {
		debuglog.Error("fetch courses", msg.err)
		c.err = MsgLoadCoursesError
		return
	}

	c.courses = orEmpty(msg.courses)
	c.refreshedAt = c.now()

	// Keep the detail view in step with the refreshed list
	if c.selected != nil {
		if course, ok := c.CourseByID(c.selected.ID); ok {
			c.selected = &course
		}
	}
}

func (c *Controller) applyEnroll(msg enrollResultMsg) tea.Cmd {
	c.enrolling = false
	c.pending = nil

	if msg.err != nil {
		debuglog.Error("enroll", msg.err)
		c.Notify(NoticeError, client.MessageOr(msg.err, MsgEnrollFailed))
		return nil
	}

	c.Notify(NoticeInfo, MsgEnrolled)
	return c.refreshCourses()
}

func orEmpty(courses []client.Course) []client.Course {
	if courses == nil {
		return []client.Course{}
	}
	return courses
}
