// ABOUTME: Tests for login, logout, register, and whoami
// ABOUTME: Runs the commands against a fake API and a temp token store

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/markalston/lms-cli/internal/apitest"
	"github.com/markalston/lms-cli/internal/store"
)

func stubPassword(t *testing.T, password string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func TestLogin_SavesToken(t *testing.T) {
	srv, tokens := setup(t)
	stubPassword(t, apitest.TeacherPassword)

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, strings.NewReader(""), apitest.TeacherUsername, false)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Logged in as john.smith (teacher)") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if _, err := tokens.Load(); err != nil {
		t.Errorf("expected token to be saved: %v", err)
	}
	if srv.Hits(apitest.RouteLogin) != 1 {
		t.Errorf("expected one login request, got %d", srv.Hits(apitest.RouteLogin))
	}
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	_, tokens := setup(t)

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, strings.NewReader("pw\n"), "  alice ", true)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Logged in as alice (student)") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if _, err := tokens.Load(); err != nil {
		t.Errorf("expected token to be saved: %v", err)
	}
}

func TestLogin_PromptsForUsername(t *testing.T) {
	setup(t)
	stubPassword(t, apitest.StudentPassword)

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, strings.NewReader("alice\n"), "", false)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Username: ") {
		t.Errorf("expected username prompt, got %s", buf.String())
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, tokens := setup(t)
	stubPassword(t, "wrong")

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, strings.NewReader(""), "alice", false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "Invalid credentials") {
		t.Errorf("expected server message, got %s", buf.String())
	}
	if _, err := tokens.Load(); !errors.Is(err, store.ErrNoToken) {
		t.Errorf("expected no saved token, got %v", err)
	}
}

func TestLogin_BlankUsernameMakesNoRequest(t *testing.T) {
	srv, _ := setup(t)
	stubPassword(t, "pw")

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, strings.NewReader(""), "   ", false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "username cannot be blank") {
		t.Errorf("expected validation message, got %s", buf.String())
	}
	if srv.Hits(apitest.RouteLogin) != 0 {
		t.Error("expected no login request")
	}
}

func TestLogin_BackendDown(t *testing.T) {
	resetFlags(t)
	apiURL = "http://127.0.0.1:1"
	stubPassword(t, "pw")

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, strings.NewReader(""), "alice", false)

	if code != exitNoAccess {
		t.Errorf("expected exit code %d, got %d", exitNoAccess, code)
	}
	if !strings.Contains(buf.String(), "cannot connect") {
		t.Errorf("expected connection error, got %s", buf.String())
	}
}

func TestLogout_ClearsToken(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	if code := runLogout(&buf); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if _, err := tokens.Load(); !errors.Is(err, store.ErrNoToken) {
		t.Errorf("expected token to be cleared, got %v", err)
	}
}

func TestRegister_Success(t *testing.T) {
	srv, _ := setup(t)
	stubPassword(t, "secret")

	var buf bytes.Buffer
	code := runRegister(context.Background(), &buf, strings.NewReader(""), "bob", false)

	if code != exitOK {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Registration successful! Please login.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if srv.Hits(apitest.RouteRegister) != 1 {
		t.Errorf("expected one register request, got %d", srv.Hits(apitest.RouteRegister))
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	srv, _ := setup(t)
	answers := []string{"secret", "different"}
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
	t.Cleanup(func() { readPasswordFunc = orig })

	var buf bytes.Buffer
	code := runRegister(context.Background(), &buf, strings.NewReader(""), "bob", false)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "Passwords do not match") {
		t.Errorf("expected mismatch message, got %s", buf.String())
	}
	if srv.Hits(apitest.RouteRegister) != 0 {
		t.Error("expected no register request")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	setup(t)

	var buf bytes.Buffer
	code := runRegister(context.Background(), &buf, strings.NewReader("pw\n"), "alice", true)

	if code != exitRejected {
		t.Errorf("expected exit code %d, got %d", exitRejected, code)
	}
	if !strings.Contains(buf.String(), "Username already exists") {
		t.Errorf("expected server message, got %s", buf.String())
	}
}

func TestWhoami_NotLoggedIn(t *testing.T) {
	setup(t)

	var buf bytes.Buffer
	code := runWhoami(&buf, false)

	if code != exitNoAccess {
		t.Errorf("expected exit code %d, got %d", exitNoAccess, code)
	}
	if !strings.Contains(buf.String(), "not logged in") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWhoami_Human(t *testing.T) {
	srv, tokens := setup(t)
	loginAs(t, tokens, apitest.TeacherToken())

	var buf bytes.Buffer
	if code := runWhoami(&buf, false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(buf.String(), "john.smith (teacher), user id 1") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "Session expires") {
		t.Errorf("expected expiry line, got %s", buf.String())
	}
	if srv.Hits(apitest.RouteCourses) != 0 {
		t.Error("whoami should not call the API")
	}
}

func TestWhoami_JSON(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.StudentToken())

	var buf bytes.Buffer
	if code := runWhoami(&buf, true); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if out["username"] != apitest.StudentUsername {
		t.Errorf("expected username alice, got %v", out["username"])
	}
	if out["role"] != "student" {
		t.Errorf("expected role student, got %v", out["role"])
	}
	if out["expired"] != false {
		t.Errorf("expected expired=false, got %v", out["expired"])
	}
}

func TestWhoami_MalformedToken(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, "not-a-token")

	var buf bytes.Buffer
	code := runWhoami(&buf, false)

	if code != exitNoAccess {
		t.Errorf("expected exit code %d, got %d", exitNoAccess, code)
	}
	if !strings.Contains(buf.String(), "log in again") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWhoami_StripsTerminalEscapesFromUsername(t *testing.T) {
	_, tokens := setup(t)
	loginAs(t, tokens, apitest.Token(7, "\x1b[31mmallory\x1b[0m", "student"))

	var buf bytes.Buffer
	if code := runWhoami(&buf, false); code != exitOK {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if strings.Contains(buf.String(), "\x1b") {
		t.Errorf("expected no escape sequences, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "mallory (student), user id 7") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
