// ABOUTME: User-facing message text shared by the interactive screens and the commands
// ABOUTME: Keeps both surfaces wording failures and confirmations the same way

package messages

// Session and course list
const (
	LoginFailed      = "Login failed"
	LoadCoursesError = "Failed to load courses"
	NoCourses        = "No courses available."
	LoadingCourses   = "Loading courses..."
)

// Registration
const (
	Registered     = "Registration successful! Please login."
	RegisterFailed = "Registration failed"

	// RegisterRole is the only role new accounts are created with
	RegisterRole = "student"
)

// Enrollment and course creation
const (
	Enrolled      = "Successfully enrolled in the course!"
	EnrollFailed  = "Failed to enroll in course"
	CourseCreated = "Course created successfully!"
	CreateFailed  = "Failed to create course"
)

// Roster and grades
const (
	GradeSubmitted   = "Grade submitted successfully!"
	GradeFailed      = "Failed to submit grade"
	LoadRosterFailed = "Failed to load students"
	NoStudents       = "No students enrolled yet."
	LoadingStudents  = "Loading students..."
	LoadGradesFailed = "Failed to load grades"
	NoGrades         = "No grades available for this course yet."
	LoadingGrades    = "Loading grades..."
)
