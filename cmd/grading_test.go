// ABOUTME: Tests for the roster, grade, and grades commands
// ABOUTME: Verifies grade validation, latest-grade display, and averages

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

func TestRoster_ShowsGradeHistory(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())
	srv.Enroll(1, apitest.StudentID)
	srv.AddGrade(1, apitest.StudentID, 40, "first try")
	srv.AddGrade(1, apitest.StudentID, 92, "much better")

	var buf bytes.Buffer
	if code := runRoster(context.Background(), &buf, "1", false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}

	output := buf.String()
	if !strings.Contains(output, "alice") {
		t.Errorf("expected student in roster, got:\n%s", output)
	}
	for _, want := range []string{"92 (honours)", "much better", "40 (failing)", "first try"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Index(output, "much better") > strings.Index(output, "first try") {
		t.Errorf("expected newest grade first, got:\n%s", output)
	}
	if strings.Count(output, "alice") != 1 {
		t.Errorf("expected the student to be named once, got:\n%s", output)
	}
}

func TestRoster_Empty(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())

	var buf bytes.Buffer
	if code := runRoster(context.Background(), &buf, "2", false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(buf.String(), "No students enrolled yet.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestRoster_JSON(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())
	srv.Enroll(1, apitest.StudentID)

	var buf bytes.Buffer
	if code := runRoster(context.Background(), &buf, "1", true); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	var out []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(out) != 1 || out[0]["username"] != apitest.StudentUsername {
		t.Errorf("unexpected roster: %v", out)
	}
}

func TestRoster_Forbidden(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())
	other := srv.AddCourse("Not Mine", "desc", 99)

	var buf bytes.Buffer
	code := runRoster(context.Background(), &buf, strconv.Itoa(other), false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "not authorized") {
		t.Errorf("expected server message, got %s", buf.String())
	}
}

func TestGrade_Success(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())
	srv.Enroll(1, apitest.StudentID)

	var buf bytes.Buffer
	code := runGrade(context.Background(), &buf, "1", "2", " 85 ", "Good work")

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Grade submitted successfully!") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if srv.GradeCount(1, apitest.StudentID) != 1 {
		t.Errorf("expected one grade, got %d", srv.GradeCount(1, apitest.StudentID))
	}
}

func TestGrade_Validation(t *testing.T) {
	tests := []struct {
		name     string
		grade    string
		feedback string
		want     string
	}{
		{"not a number", "abc", "ok", "grade must be a whole number"},
		{"too high", "101", "ok", "grade must be at most 100"},
		{"negative", "-1", "ok", "grade must be at least 0"},
		{"blank feedback", "50", "  ", "feedback cannot be blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, tokens := setup(t)
			loginAs(t, tokens, apitest.TeacherToken())

			var buf bytes.Buffer
			code := runGrade(context.Background(), &buf, "1", "2", tt.grade, tt.feedback)

			if code != exitRejected {
				t.Errorf("expected exit code %d, got %d", exitRejected, code)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q, got %s", tt.want, buf.String())
			}
			if srv.Hits(apitest.RouteSubmitGrade) != 0 {
				t.Error("expected no grade request")
			}
		})
	}
}

func TestGrade_StudentNotEnrolled(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())

	var buf bytes.Buffer
	code := runGrade(context.Background(), &buf, "1", "2", "70", "ok")

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "Student is not enrolled in this course") {
		t.Errorf("expected server message, got %s", buf.String())
	}
}

func TestGrade_ServerDecidesRole(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	code := runGrade(context.Background(), &buf, "1", "2", "100", "self-graded")

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if srv.Hits(apitest.RouteSubmitGrade) != 1 {
		t.Errorf("expected the request to reach the server, got %d", srv.Hits(apitest.RouteSubmitGrade))
	}
	if srv.GradeCount(1, apitest.StudentID) != 0 {
		t.Error("expected no grade to be recorded")
	}
}

func TestGrades_WithAverage(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Enroll(1, apitest.StudentID)
	srv.AddGrade(1, apitest.StudentID, 50, "needs work")
	srv.AddGrade(1, apitest.StudentID, 75, "improving")

	var buf bytes.Buffer
	if code := runGrades(context.Background(), &buf, "1", false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}

	output := buf.String()
	for _, want := range []string{"needs work", "improving", "failing", "passing", "Average: 62.5 over 2 grade(s)"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestGrades_Empty(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	if code := runGrades(context.Background(), &buf, "1", false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(buf.String(), "No grades available for this course yet.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestGrades_JSON(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.AddGrade(2, apitest.StudentID, 80, "solid")

	var buf bytes.Buffer
	if code := runGrades(context.Background(), &buf, "2", true); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	var out gradesOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if out.CourseID != 2 || len(out.Grades) != 1 {
		t.Errorf("unexpected output: %+v", out)
	}
	if out.Average == nil || *out.Average != 80 {
		t.Errorf("expected average 80, got %v", out.Average)
	}
}

func TestGrades_ServerError(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())
	srv.Respond(apitest.RouteStudentGrades, http.StatusInternalServerError, "")

	var buf bytes.Buffer
	code := runGrades(context.Background(), &buf, "1", false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "Failed to load grades") {
		t.Errorf("expected fallback message, got %s", buf.String())
	}
}
