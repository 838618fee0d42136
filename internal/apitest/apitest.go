// ABOUTME: In-process fake of the learning platform API for tests
// ABOUTME: Serves the real route table on a gorilla/mux router behind httptest

package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// Route names accepted by Hits, Fail and Respond
const (
	RouteLogin         = "login"
	RouteRegister      = "register"
	RouteCourses       = "courses.list"
	RouteCreateCourse  = "courses.create"
	RouteEnroll        = "enroll"
	RouteRoster        = "roster"
	RouteSubmitGrade   = "grade"
	RouteStudentGrades = "grades"
)

// Seeded accounts
const (
	TeacherID       = 1
	TeacherUsername = "john.smith"
	TeacherPassword = "teacher123"

	StudentID       = 2
	StudentUsername = "alice"
	StudentPassword = "pw"
)

var secret = []byte("apitest-secret")

type user struct {
	ID       int
	Username string
	Password string
	Role     string
}

type course struct {
	ID          int
	Title       string
	Description string
	TeacherID   int
}

type grade struct {
	ID        int
	StudentID int
	CourseID  int
	Value     int
	Feedback  string
	GradedAt  time.Time
}

type response struct {
	status int
	body   string
}

// Server is a fake API with seeded users and courses
type Server struct {
	*httptest.Server

	t           testing.TB
	mu          sync.Mutex
	users       map[string]*user
	courses     []*course
	enrollments map[int]map[int]bool
	grades      []grade
	nextUser    int
	nextCourse  int
	nextGrade   int
	hits        map[string]int
	overrides   map[string]response
	holds       map[string]*hold
}

// hold withholds one response until released
type hold struct {
	arrived chan struct{}
	release chan struct{}
}

// New starts a seeded fake API that is closed when the test ends
func New(t testing.TB) *Server {
	s := &Server{
		t:           t,
		users:       make(map[string]*user),
		enrollments: make(map[int]map[int]bool),
		hits:        make(map[string]int),
		overrides:   make(map[string]response),
		holds:       make(map[string]*hold),
		nextUser:    1,
		nextCourse:  1,
		nextGrade:   1,
	}

	s.addUser(TeacherUsername, TeacherPassword, "teacher")
	s.addUser(StudentUsername, StudentPassword, "student")
	s.AddCourse("Web Security Basics", "Learn about XSS, CSRF, and SQL Injection", TeacherID)
	s.AddCourse("Network Security", "Understanding network protocols and security measures", TeacherID)
	s.AddCourse("Machine Learning & AI", "Understanding Supervised and unsupervised learning. ", TeacherID)

	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods("POST").Name(RouteLogin)
	api.HandleFunc("/register", s.handleRegister).Methods("POST").Name(RouteRegister)
	api.HandleFunc("/courses", s.auth(s.handleCourses)).Methods("GET").Name(RouteCourses)
	api.HandleFunc("/courses", s.auth(s.handleCreateCourse)).Methods("POST").Name(RouteCreateCourse)
	api.HandleFunc("/enroll", s.auth(s.handleEnroll)).Methods("POST").Name(RouteEnroll)
	api.HandleFunc("/courses/{id:[0-9]+}/students", s.auth(s.handleRoster)).Methods("GET").Name(RouteRoster)
	api.HandleFunc("/grade/student", s.auth(s.handleSubmitGrade)).Methods("POST").Name(RouteSubmitGrade)
	api.HandleFunc("/courses/{id:[0-9]+}/student-grades/{studentID:[0-9]+}", s.auth(s.handleStudentGrades)).Methods("GET").Name(RouteStudentGrades)
	return r
}

// Token signs a token for the given identity, valid for a day
func Token(id int, username, role string) string {
	claims := jwt.MapClaims{
		"user_id":  id,
		"username": username,
		"role":     role,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// TeacherToken returns a valid token for the seeded teacher
func TeacherToken() string { return Token(TeacherID, TeacherUsername, "teacher") }

// StudentToken returns a valid token for the seeded student
func StudentToken() string { return Token(StudentID, StudentUsername, "student") }

// Hits returns how many requests reached the named route
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Fail makes the named route answer with status and a {"message": ...} body.
// An empty message sends an empty body.
func (s *Server) Fail(route string, status int, message string) {
	body := ""
	if message != "" {
		data, _ := json.Marshal(map[string]string{"message": message})
		body = string(data)
	}
	s.Respond(route, status, body)
}

// Respond makes the named route answer with a canned status and raw body
func (s *Server) Respond(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[route] = response{status: status, body: body}
}

// Hold makes the next request to the named route compute its response as soon
// as it arrives but withhold it until release is called. arrived is closed once
// the response has been computed. Release is safe to call more than once.
func (s *Server) Hold(route string) (arrived <-chan struct{}, release func()) {
	h := &hold{arrived: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.holds[route] = h
	s.mu.Unlock()

	var once sync.Once
	release = func() { once.Do(func() { close(h.release) }) }
	s.t.Cleanup(release)
	return h.arrived, release
}

// Restore removes a Fail or Respond override
func (s *Server) Restore(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, route)
}

// AddCourse creates a course and returns its id
func (s *Server) AddCourse(title, description string, teacherID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &course{ID: s.nextCourse, Title: title, Description: description, TeacherID: teacherID}
	s.nextCourse++
	s.courses = append(s.courses, c)
	return c.ID
}

// Enroll enrolls a student directly
func (s *Server) Enroll(courseID, studentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollLocked(courseID, studentID)
}

// Enrolled reports whether the student is enrolled in the course
func (s *Server) Enrolled(courseID, studentID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollments[courseID][studentID]
}

// AddGrade records a grade directly
func (s *Server) AddGrade(courseID, studentID, value int, feedback string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addGradeLocked(courseID, studentID, value, feedback)
}

// GradeCount returns how many grades the student has in the course
func (s *Server) GradeCount(courseID, studentID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, g := range s.grades {
		if g.CourseID == courseID && g.StudentID == studentID {
			n++
		}
	}
	return n
}

// CourseCount returns the number of courses on the server
func (s *Server) CourseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.courses)
}

func (s *Server) addUser(username, password, role string) *user {
	u := &user{ID: s.nextUser, Username: username, Password: password, Role: role}
	s.nextUser++
	s.users[username] = u
	return u
}

func (s *Server) userByID(id int) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) courseByID(id int) *course {
	for _, c := range s.courses {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Server) enrollLocked(courseID, studentID int) {
	if s.enrollments[courseID] == nil {
		s.enrollments[courseID] = make(map[int]bool)
	}
	s.enrollments[courseID][studentID] = true
}

func (s *Server) addGradeLocked(courseID, studentID, value int, feedback string) {
	s.grades = append(s.grades, grade{
		ID:        s.nextGrade,
		StudentID: studentID,
		CourseID:  courseID,
		Value:     value,
		Feedback:  feedback,
		GradedAt:  time.Now().UTC(),
	})
	s.nextGrade++
}

// record counts hits per route and serves any override
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}
		if id := r.Header.Get("X-Request-ID"); id != "" {
			w.Header().Set("X-Request-ID", id)
		}

		s.mu.Lock()
		s.hits[name]++
		override, ok := s.overrides[name]
		h := s.holds[name]
		delete(s.holds, name)
		s.mu.Unlock()

		if h != nil {
			// Answer from the state at arrival, delivered on release
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, r)
			close(h.arrived)
			<-h.release
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			w.Write(rec.Body.Bytes())
			return
		}

		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(override.status)
			w.Write([]byte(override.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const userKey contextKey = "user"

// auth verifies the bearer token and loads the caller
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, _ := token.Claims.(jwt.MapClaims)
		id, _ := claims["user_id"].(float64)

		s.mu.Lock()
		u := s.userByID(int(id))
		s.mu.Unlock()
		if u == nil {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	}
}

func caller(r *http.Request) *user {
	u, _ := r.Context().Value(userKey).(*user)
	return u
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	u, ok := s.users[body.Username]
	s.mu.Unlock()
	if !ok || u.Password != body.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": Token(u.ID, u.Username, u.Role)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Username]; exists {
		writeMessage(w, http.StatusBadRequest, "Username already exists")
		return
	}
	s.addUser(body.Username, body.Password, body.Role)
	writeMessage(w, http.StatusOK, "Registration successful")
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	u := caller(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(s.courses))
	for _, c := range s.courses {
		if u.Role == "teacher" {
			if c.TeacherID != u.ID {
				continue
			}
			out = append(out, map[string]interface{}{
				"id":           c.ID,
				"title":        c.Title,
				"description":  c.Description,
				"teacher_id":   c.TeacherID,
				"teacher_name": u.Username,
			})
			continue
		}

		teacherName := "Unknown Teacher"
		if t := s.userByID(c.TeacherID); t != nil {
			teacherName = t.Username
		}
		out = append(out, map[string]interface{}{
			"id":           c.ID,
			"title":        c.Title,
			"description":  c.Description,
			"teacher_id":   c.TeacherID,
			"teacher_name": teacherName,
			"enrolled":     s.enrollments[c.ID][u.ID],
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	if u.Role != "teacher" {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}

	var body struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	id := s.AddCourse(body.Title, body.Description, u.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Course created successfully",
		"course": map[string]interface{}{
			"id":          id,
			"title":       body.Title,
			"description": body.Description,
			"teacher_id":  u.ID,
		},
	})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	if u.Role != "student" {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}

	var body struct {
		CourseID int `json:"course_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.courseByID(body.CourseID) == nil {
		writeMessage(w, http.StatusNotFound, "Course not found")
		return
	}
	s.enrollLocked(body.CourseID, u.ID)
	writeMessage(w, http.StatusOK, "Enrolled successfully")
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	courseID, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Role != "teacher" {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}
	if c := s.courseByID(courseID); c == nil || c.TeacherID != u.ID {
		writeMessage(w, http.StatusForbidden, "You are not authorized to view students in this course")
		return
	}

	ids := make([]int, 0, len(s.enrollments[courseID]))
	for id := range s.enrollments[courseID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		student := s.userByID(id)
		if student == nil {
			continue
		}
		grades := make([]map[string]interface{}, 0)
		for _, g := range s.grades {
			if g.CourseID == courseID && g.StudentID == id {
				grades = append(grades, map[string]interface{}{
					"value":     g.Value,
					"feedback":  g.Feedback,
					"graded_at": g.GradedAt.Format("2006-01-02T15:04:05.000000"),
				})
			}
		}
		out = append(out, map[string]interface{}{
			"id":       student.ID,
			"username": student.Username,
			"grades":   grades,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmitGrade(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	if u.Role != "teacher" {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}

	var body struct {
		StudentID int    `json:"student_id"`
		CourseID  int    `json:"course_id"`
		Grade     int    `json:"grade"`
		Feedback  string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.courseByID(body.CourseID); c == nil || c.TeacherID != u.ID {
		writeMessage(w, http.StatusForbidden, "Unauthorized to grade in this course")
		return
	}
	if !s.enrollments[body.CourseID][body.StudentID] {
		writeMessage(w, http.StatusBadRequest, "Student is not enrolled in this course")
		return
	}
	s.addGradeLocked(body.CourseID, body.StudentID, body.Grade, body.Feedback)
	writeMessage(w, http.StatusOK, "Grade submitted successfully")
}

func (s *Server) handleStudentGrades(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	vars := mux.Vars(r)
	courseID, _ := strconv.Atoi(vars["id"])
	studentID, _ := strconv.Atoi(vars["studentID"])

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Role == "teacher" {
		if c := s.courseByID(courseID); c == nil || c.TeacherID != u.ID {
			writeMessage(w, http.StatusForbidden, "Unauthorized")
			return
		}
	} else if u.ID != studentID {
		writeMessage(w, http.StatusForbidden, "Unauthorized")
		return
	}

	out := make([]map[string]interface{}, 0)
	for i := len(s.grades) - 1; i >= 0; i-- {
		g := s.grades[i]
		if g.CourseID == courseID && g.StudentID == studentID {
			out = append(out, map[string]interface{}{
				"id":        g.ID,
				"value":     g.Value,
				"feedback":  g.Feedback,
				"graded_at": g.GradedAt.Format("2006-01-02T15:04:05.000000"),
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
