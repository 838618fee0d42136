// ABOUTME: Tests for the student grade view
// ABOUTME: Loads grades from the fake API and checks empty, error, and stale cases

package grades

import (
	"context"
	"net/http"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/markalston/lms-cli/internal/apitest"
	"github.com/markalston/lms-cli/internal/client"
)

type fakeController struct {
	courses   map[int]client.Course
	enrolling bool
	requested []int
}

func (f *fakeController) Token() string { return apitest.StudentToken() }
func (f *fakeController) Context() context.Context { return context.Background() }
func (f *fakeController) Enrolling() bool { return f.enrolling }
func (f *fakeController) RequestEnrollment(id int) { f.requested = append(f.requested, id) }
func (f *fakeController) CourseByID(id int) (client.Course, bool) {
	c, ok := f.courses[id]
	return c, ok
}

func enrolledCourse() client.Course {
	yes := true
	return client.Course{ID: 2, Title: "Network Security", TeacherName: "john.smith", Enrolled: &yes}
}

func newGrades(t *testing.T, course client.Course) (*Model, *apitest.Server, *fakeController) {
	t.Helper()
	srv := apitest.New(t)
	srv.Enroll(course.ID, apitest.StudentID)
	ctrl := &fakeController{courses: map[int]client.Course{course.ID: course}}
	return New(client.New(srv.URL), ctrl, course, apitest.StudentID), srv, ctrl
}

func TestLoadGrades(t *testing.T) {
	m, srv, _ := newGrades(t, enrolledCourse())
	srv.AddGrade(2, apitest.StudentID, 55, "Review chapter 2")
	srv.AddGrade(2, apitest.StudentID, 88, "Much better")

	m.Update(m.Init()())

	if len(m.Grades()) != 2 || m.Grades()[0].Value != 88 {
		t.Fatalf("expected newest grade first, got %+v", m.Grades())
	}
	view := ansi.Strip(m.View())
	for _, want := range []string{"Network Security", "Much better", "Review chapter 2", "88/100", "Average"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view\n%s", want, view)
		}
	}
	if strings.Contains(view, "not enrolled") {
		t.Error("enrolled course should not prompt to enroll")
	}
}

func TestNoGrades(t *testing.T) {
	m, _, _ := newGrades(t, enrolledCourse())

	m.Update(m.Init()())

	if !strings.Contains(m.View(), MsgNoGrades) {
		t.Errorf("expected empty message\n%s", m.View())
	}
}

func TestLoadFailure(t *testing.T) {
	m, srv, _ := newGrades(t, enrolledCourse())
	srv.Fail(apitest.RouteStudentGrades, http.StatusInternalServerError, "boom")

	m.Update(m.Init()())

	if m.Err() != MsgLoadFailed || m.Loading() {
		t.Errorf("unexpected state err=%q loading=%v", m.Err(), m.Loading())
	}
}

func TestUsesSessionStudentID(t *testing.T) {
	m, srv, _ := newGrades(t, enrolledCourse())
	srv.AddGrade(2, apitest.StudentID, 70, "ok")

	m.Update(m.Init()())

	if srv.Hits(apitest.RouteStudentGrades) != 1 || len(m.Grades()) != 1 {
		t.Error("expected one request returning the student's grade")
	}
}

func TestStaleResultDropped(t *testing.T) {
	m, _, _ := newGrades(t, enrolledCourse())
	first := m.Refresh()
	m.Refresh()

	m.Update(first())

	if !m.Loading() {
		t.Error("superseded fetch must not clear loading")
	}
}

func TestNotEnrolledPrompt(t *testing.T) {
	no := false
	course := client.Course{ID: 3, Title: "Machine Learning & AI", Enrolled: &no}
	m, _, ctrl := newGrades(t, course)

	if !strings.Contains(m.View(), "Press e to enroll") {
		t.Error("expected enroll hint")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if len(ctrl.requested) != 1 || ctrl.requested[0] != 3 {
		t.Errorf("expected enrollment request for 3, got %v", ctrl.requested)
	}

	ctrl.enrolling = true
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if len(ctrl.requested) != 1 {
		t.Error("enroll must be disabled while enrolling")
	}
}

func TestEscGoesBack(t *testing.T) {
	m, _, _ := newGrades(t, enrolledCourse())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(BackMsg); !ok {
		t.Error("expected BackMsg")
	}
}
