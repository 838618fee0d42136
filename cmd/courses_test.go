// ABOUTME: Tests for the courses, courses create, and enroll commands
// ABOUTME: Covers role-specific listings, validation, and enrollment confirmation

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/markalston/lms-cli/internal/apitest"
)

func TestCourses_NotLoggedIn(t *testing.T) {
	srv, _ := setup(t)

	var buf bytes.Buffer
	code := runCourses(context.Background(), &buf, false)

	if code != exitNoAccess {
		t.Errorf("expected exit code %d, got %d", exitNoAccess, code)
	}
	if srv.Hits(apitest.RouteCourses) != 0 {
		t.Error("expected no courses request without a session")
	}
}

func TestCourses_StudentTable(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Enroll(1, apitest.StudentID)

	var buf bytes.Buffer
	if code := runCourses(context.Background(), &buf, false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}

	output := buf.String()
	for _, want := range []string{"INSTRUCTOR", "ENROLLED", "Web Security Basics", "Machine Learning & AI", "john.smith", "yes", "no"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestCourses_TeacherTable(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())
	srv.AddCourse("Someone Else's Course", "Not mine", 99)

	var buf bytes.Buffer
	if code := runCourses(context.Background(), &buf, false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}

	output := buf.String()
	if !strings.Contains(output, "DESCRIPTION") || strings.Contains(output, "ENROLLED") {
		t.Errorf("expected teacher columns, got:\n%s", output)
	}
	if strings.Contains(output, "Someone Else's Course") {
		t.Errorf("teacher should only see their own courses, got:\n%s", output)
	}
}

func TestCourses_JSON(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	if code := runCourses(context.Background(), &buf, true); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	var out []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("expected 3 courses, got %d", len(out))
	}
}

func TestCourses_Empty(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Respond(apitest.RouteCourses, http.StatusOK, "[]")

	var buf bytes.Buffer
	if code := runCourses(context.Background(), &buf, false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(buf.String(), "No courses available.") {
		t.Errorf("expected empty message, got %s", buf.String())
	}
}

func TestCourses_ServerErrorFallback(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Respond(apitest.RouteCourses, http.StatusInternalServerError, "{}")

	var buf bytes.Buffer
	code := runCourses(context.Background(), &buf, false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "Failed to load courses") {
		t.Errorf("expected fallback message, got %s", buf.String())
	}
}

func TestCourses_ExpiredSession(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Fail(apitest.RouteCourses, http.StatusUnauthorized, "")

	var buf bytes.Buffer
	code := runCourses(context.Background(), &buf, false)

	if code != exitNoAccess {
		t.Errorf("expected exit code %d, got %d", exitNoAccess, code)
	}
	if !strings.Contains(buf.String(), "log in again") {
		t.Errorf("expected re-login hint, got %s", buf.String())
	}
}

func TestCreateCourse_Success(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())
	before := srv.CourseCount()

	var buf bytes.Buffer
	code := runCreateCourse(context.Background(), &buf, "Cryptography", "Ciphers and keys", false)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Course created successfully!") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "Cryptography") {
		t.Errorf("expected created title in output, got %s", buf.String())
	}
	if srv.CourseCount() != before+1 {
		t.Errorf("expected %d courses, got %d", before+1, srv.CourseCount())
	}
}

func TestCreateCourse_BlankTitle(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())

	var buf bytes.Buffer
	code := runCreateCourse(context.Background(), &buf, "  ", "desc", false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "title cannot be blank") {
		t.Errorf("expected validation message, got %s", buf.String())
	}
	if srv.Hits(apitest.RouteCreateCourse) != 0 {
		t.Error("expected no create request")
	}
}

func TestCreateCourse_ServerDecidesRole(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	code := runCreateCourse(context.Background(), &buf, "Title", "desc", false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if srv.Hits(apitest.RouteCreateCourse) != 1 {
		t.Errorf("expected the request to reach the server, got %d", srv.Hits(apitest.RouteCreateCourse))
	}
	if !strings.Contains(buf.String(), "Unauthorized") {
		t.Errorf("expected server message, got %s", buf.String())
	}
}

func TestEnroll_WithConfirmation(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader("y\n"), "2", false)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Enroll in Network Security?") {
		t.Errorf("expected confirmation prompt, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), "Successfully enrolled in the course!") {
		t.Errorf("expected success message, got %s", buf.String())
	}
	if !srv.Enrolled(2, apitest.StudentID) {
		t.Error("expected student to be enrolled")
	}
}

func TestEnroll_Declined(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader("n\n"), "2", false)

	if code != exitOK {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if srv.Hits(apitest.RouteEnroll) != 0 {
		t.Error("expected no enroll request after declining")
	}
}

func TestEnroll_Yes(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader(""), "3", true)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if strings.Contains(buf.String(), "[y/N]") {
		t.Error("--yes should skip the prompt")
	}
	if !srv.Enrolled(3, apitest.StudentID) {
		t.Error("expected student to be enrolled")
	}
}

func TestEnroll_AlreadyEnrolled(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Enroll(1, apitest.StudentID)

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader(""), "1", true)

	if code != exitOK {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(buf.String(), "Already enrolled") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if srv.Hits(apitest.RouteEnroll) != 0 {
		t.Error("expected no enroll request")
	}
}

func TestEnroll_UnknownCourse(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader(""), "42", true)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "course 42 not found") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestEnroll_InvalidID(t *testing.T) {
	setup(t)

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader(""), "abc", true)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "course id must be a positive number") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestEnroll_ServerDecidesRole(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader(""), "2", true)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if srv.Hits(apitest.RouteEnroll) != 1 {
		t.Errorf("expected the request to reach the server, got %d", srv.Hits(apitest.RouteEnroll))
	}
	if !strings.Contains(buf.String(), "Unauthorized") {
		t.Errorf("expected server message, got %s", buf.String())
	}
}

func TestEnroll_StripsTerminalEscapesFromServerText(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	id := srv.AddCourse("\x1b]0;pwned\x07Evil\x1b[31m Course\x1b[0m", "desc", apitest.TeacherID)
	srv.Fail(apitest.RouteEnroll, http.StatusBadRequest, "\x1b[2Jcourse is full")

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader("y\n"), strconv.Itoa(id), false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	output := buf.String()
	if strings.ContainsAny(output, "\x1b\x07") {
		t.Errorf("expected no escape sequences, got %q", output)
	}
	if !strings.Contains(output, "Enroll in Evil Course?") {
		t.Errorf("expected cleaned title in prompt, got %q", output)
	}
	if !strings.Contains(output, "Error: course is full") {
		t.Errorf("expected cleaned server message, got %q", output)
	}
}

func TestEnroll_ServerRejects(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Fail(apitest.RouteEnroll, http.StatusBadRequest, "")

	var buf bytes.Buffer
	code := runEnroll(context.Background(), &buf, strings.NewReader(""), "2", true)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "Failed to enroll in course") {
		t.Errorf("expected fallback message, got %s", buf.String())
	}
}
