// ABOUTME: HTTP client for the learning platform API
// ABOUTME: Wraps API calls with proper error handling for CLI and TUI usage

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/markalston/lms-cli/internal/debuglog"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every API round trip
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per-request id so client and server logs line up
const RequestIDHeader = "X-Request-ID"

// ErrUnauthorized matches any APIError with status 401
var ErrUnauthorized = errors.New("unauthorized")

// Client is the API client for the learning platform backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Course is one entry of the course catalog. Enrolled is only reported to students.
type Course struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TeacherID   int    `json:"teacher_id"`
	TeacherName string `json:"teacher_name,omitempty"`
	Enrolled    *bool  `json:"enrolled,omitempty"`
}

// IsEnrolled reports whether the current student is enrolled in the course
func (c Course) IsEnrolled() bool {
	return c.Enrolled != nil && *c.Enrolled
}

// Grade is one recorded grade. Roster grades carry no id.
type Grade struct {
	ID       int    `json:"id,omitempty"`
	Value    int    `json:"value"`
	Feedback string `json:"feedback"`
	GradedAt string `json:"graded_at"`
}

// timestamp layouts the API is known to emit
var gradedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Time parses GradedAt. Timestamps without a zone are taken as UTC.
func (g Grade) Time() (time.Time, bool) {
	for _, layout := range gradedAtLayouts {
		if t, err := time.Parse(layout, g.GradedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Student is one roster row with the student's grades in that course
type Student struct {
	ID       int     `json:"id"`
	Username string  `json:"username"`
	Grades   []Grade `json:"grades"`
}

// LatestGrade returns the most recently recorded grade, if any
func (s Student) LatestGrade() (Grade, bool) {
	if len(s.Grades) == 0 {
		return Grade{}, false
	}
	return s.Grades[len(s.Grades)-1], true
}

// Credentials is the POST /api/login body
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the POST /api/register body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// NewCourse is the POST /api/courses body
type NewCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GradeSubmission is the POST /api/grade/student body
type GradeSubmission struct {
	StudentID int    `json:"student_id"`
	CourseID  int    `json:"course_id"`
	Grade     int    `json:"grade"`
	Feedback  string `json:"feedback"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type createCourseResponse struct {
	Message string  `json:"message"`
	Course  *Course `json:"course"`
}

type enrollRequest struct {
	CourseID int `json:"course_id"`
}

// ErrorResponse represents an API error body
type ErrorResponse struct {
	Message string `json:"message"`
}

// APIError is returned when the server answers with a non-2xx status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error: %s", e.Message)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// MessageOr returns the server-supplied message carried by err, or fallback
// when err is not an API rejection or the server gave no message.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Login calls POST /api/login and returns the bearer token
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", "", Credentials{Username: username, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("invalid response from backend: missing token")
	}
	return resp.Token, nil
}

// Register calls POST /api/register
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/register", "", req, nil)
}

// Courses calls GET /api/courses. Concurrent calls for the same token share one request.
func (c *Client) Courses(ctx context.Context, token string) ([]Course, error) {
	return c.courses(ctx, token)
}

// FreshCourses calls GET /api/courses without joining a request already in
// flight, so the list reflects every mutation acknowledged before the call.
// Later Courses calls share this request instead of the older one.
func (c *Client) FreshCourses(ctx context.Context, token string) ([]Course, error) {
	c.group.Forget(coursesKey(token))
	return c.courses(ctx, token)
}

func coursesKey(token string) string { return "courses:" + token }

func (c *Client) courses(ctx context.Context, token string) ([]Course, error) {
	v, err, _ := c.group.Do(coursesKey(token), func() (interface{}, error) {
		return getList[Course](ctx, c, "/api/courses", token)
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]Course)
	courses := make([]Course, len(shared))
	copy(courses, shared)
	return courses, nil
}

// CreateCourse calls POST /api/courses. The created course is returned when the server echoes it.
func (c *Client) CreateCourse(ctx context.Context, token string, course NewCourse) (*Course, error) {
	var resp createCourseResponse
	if err := c.do(ctx, http.MethodPost, "/api/courses", token, course, &resp); err != nil {
		return nil, err
	}
	return resp.Course, nil
}

// Enroll calls POST /api/enroll
func (c *Client) Enroll(ctx context.Context, token string, courseID int) error {
	return c.do(ctx, http.MethodPost, "/api/enroll", token, enrollRequest{CourseID: courseID}, nil)
}

// Roster calls GET /api/courses/{id}/students
func (c *Client) Roster(ctx context.Context, token string, courseID int) ([]Student, error) {
	return getList[Student](ctx, c, fmt.Sprintf("/api/courses/%d/students", courseID), token)
}

// SubmitGrade calls POST /api/grade/student
func (c *Client) SubmitGrade(ctx context.Context, token string, sub GradeSubmission) error {
	return c.do(ctx, http.MethodPost, "/api/grade/student", token, sub, nil)
}

// StudentGrades calls GET /api/courses/{id}/student-grades/{studentID}
func (c *Client) StudentGrades(ctx context.Context, token string, courseID, studentID int) ([]Grade, error) {
	return getList[Grade](ctx, c, fmt.Sprintf("/api/courses/%d/student-grades/%d", courseID, studentID), token)
}

// getList fetches a JSON array. Bodies that are not an array of T decode as empty.
func getList[T any](ctx context.Context, c *Client, path, token string) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		if err != nil {
			debuglog.Warn("coercing malformed list from %s: %v", path, err)
		}
		return []T{}, nil
	}
	return items, nil
}

// do performs one JSON round trip. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal input: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = c.handleRequestError(ctx, err)
		debuglog.Request(requestID, method, path, 0, time.Since(start), err)
		return err
	}
	defer resp.Body.Close()
	debuglog.Request(requestID, method, path, resp.StatusCode, time.Since(start), nil)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if raw, ok := out.(*json.RawMessage); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return c.handleRequestError(ctx, err)
		}
		*raw = data
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return fmt.Errorf("request canceled: %w", context.Canceled)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}

// handleErrorResponse parses API error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Message = errResp.Message
	}
	return apiErr
}
