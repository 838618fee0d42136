// ABOUTME: Tests for the course dashboard
// ABOUTME: Validates role-specific rows, navigation, and sanitized descriptions

package courses

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/session"
)

type fakeController struct {
	sess      *session.Session
	courses   []client.Course
	loading   bool
	err       string
	enrolling bool
	selected  []int
	requested []int
}

func (f *fakeController) Session() *session.Session { return f.sess }
func (f *fakeController) Courses() []client.Course { return f.courses }
func (f *fakeController) Loading() bool { return f.loading }
func (f *fakeController) Err() string { return f.err }
func (f *fakeController) Enrolling() bool { return f.enrolling }
func (f *fakeController) SelectCourse(c client.Course) { f.selected = append(f.selected, c.ID) }
func (f *fakeController) RequestEnrollment(id int) { f.requested = append(f.requested, id) }

func boolPtr(b bool) *bool { return &b }

func student() *session.Session {
	return &session.Session{UserID: 2, Username: "alice", Role: session.RoleStudent}
}

func teacher() *session.Session {
	return &session.Session{UserID: 1, Username: "john.smith", Role: session.RoleTeacher}
}

func sampleCourses() []client.Course {
	return []client.Course{
		{ID: 1, Title: "Web Security Basics", Description: "XSS and CSRF", TeacherName: "john.smith", Enrolled: boolPtr(true)},
		{ID: 7, Title: "Network Security", Description: "Firewalls", TeacherName: "john.smith", Enrolled: boolPtr(false)},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStudentRows(t *testing.T) {
	ctrl := &fakeController{sess: student(), courses: sampleCourses()}
	view := ansi.Strip(New(ctrl).View())

	for _, want := range []string{"Available Courses", "Web Security Basics", "john.smith", "Enrolled", "[Enroll]"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view\n%s", want, view)
		}
	}
	if strings.Contains(view, "Manage course") {
		t.Error("students should not see teacher actions")
	}
}

func TestTeacherRows(t *testing.T) {
	ctrl := &fakeController{sess: teacher(), courses: sampleCourses()}
	view := ansi.Strip(New(ctrl).View())

	if !strings.Contains(view, "My Courses") || !strings.Contains(view, "[Manage course]") {
		t.Errorf("expected teacher layout\n%s", view)
	}
	if strings.Contains(view, "[Enroll]") {
		t.Error("teachers should not see enroll actions")
	}
}

func TestEmptyAndLoading(t *testing.T) {
	ctrl := &fakeController{sess: student(), courses: []client.Course{}}
	if view := New(ctrl).View(); !strings.Contains(view, MsgEmpty) {
		t.Errorf("expected empty message\n%s", view)
	}

	ctrl.loading = true
	if view := New(ctrl).View(); !strings.Contains(view, MsgLoading) {
		t.Errorf("expected loading message\n%s", view)
	}
}

func TestErrorBannerKeepsList(t *testing.T) {
	ctrl := &fakeController{sess: student(), courses: sampleCourses(), err: "Failed to load courses"}
	view := ansi.Strip(New(ctrl).View())

	if !strings.Contains(view, "Failed to load courses") {
		t.Error("expected error banner")
	}
	if !strings.Contains(view, "Network Security") {
		t.Error("list should still render under the banner")
	}
}

func TestDescriptionRenderedAsText(t *testing.T) {
	courses := []client.Course{{
		ID:          3,
		Title:       "Machine Learning & AI",
		Description: "<p>Intro <b>models</b></p><script>alert('x')</script>\x1b[31m",
	}}
	ctrl := &fakeController{sess: student(), courses: courses}
	view := ansi.Strip(New(ctrl).View())

	if !strings.Contains(view, "Intro models") {
		t.Errorf("expected plain text description\n%s", view)
	}
	if strings.Contains(view, "alert") || strings.Contains(view, "<script>") || strings.Contains(view, "<p>") {
		t.Errorf("markup leaked into view\n%s", view)
	}
}

func TestNavigateAndSelect(t *testing.T) {
	ctrl := &fakeController{sess: student(), courses: sampleCourses()}
	m := New(ctrl)

	m.Update(key("down"))
	m.Update(key("down"))
	if m.Cursor() != 1 {
		t.Errorf("cursor should stop at last row, got %d", m.Cursor())
	}
	m.Update(key("enter"))
	m.Update(key("up"))
	m.Update(key("enter"))

	if len(ctrl.selected) != 2 || ctrl.selected[0] != 7 || ctrl.selected[1] != 1 {
		t.Errorf("unexpected selections %v", ctrl.selected)
	}
}

func TestEnrollRequest(t *testing.T) {
	ctrl := &fakeController{sess: student(), courses: sampleCourses()}
	m := New(ctrl)

	m.Update(key("e")) // already enrolled in course 1
	m.Update(key("j"))
	m.Update(key("e"))

	if len(ctrl.requested) != 1 || ctrl.requested[0] != 7 {
		t.Errorf("expected enrollment request for 7, got %v", ctrl.requested)
	}

	ctrl.enrolling = true
	m.Update(key("e"))
	if len(ctrl.requested) != 1 {
		t.Error("enroll action must be disabled while enrolling")
	}
}

func TestTeacherNewCourse(t *testing.T) {
	ctrl := &fakeController{sess: teacher(), courses: sampleCourses()}
	_, cmd := New(ctrl).Update(key("n"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(NewCourseMsg); !ok {
		t.Error("expected NewCourseMsg")
	}

	ctrl.sess = student()
	if _, cmd := New(ctrl).Update(key("n")); cmd != nil {
		t.Error("students cannot create courses")
	}
}
