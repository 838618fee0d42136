// ABOUTME: Grading commands: roster, grade, and grades
// ABOUTME: Teachers list and grade enrolled students; students read their own grades

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/spf13/cobra"
)

const feedbackWidth = 40

var (
	gradeValue    string
	gradeFeedback string
)

var rosterCmd = &cobra.Command{
	Use:   "roster COURSE_ID",
	Short: "List students enrolled in a course (teachers)",
	Args:  requireArgs("COURSE_ID"),
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runRoster(ctx, os.Stdout, args[0], IsJSONOutput())
		})
	},
}

var gradeCmd = &cobra.Command{
	Use:   "grade COURSE_ID STUDENT_ID",
	Short: "Record a grade for a student (teachers)",
	Long: `Records a grade between 0 and 100 with written feedback for one
student in one course. Earlier grades are kept; the newest one is shown
as the student's current grade.`,
	Args: requireArgs("COURSE_ID", "STUDENT_ID"),
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runGrade(ctx, os.Stdout, args[0], args[1], gradeValue, gradeFeedback)
		})
	},
}

var gradesCmd = &cobra.Command{
	Use:   "grades COURSE_ID",
	Short: "Show your grades for a course (students)",
	Args:  requireArgs("COURSE_ID"),
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runGrades(ctx, os.Stdout, args[0], IsJSONOutput())
		})
	},
}

func init() {
	gradeCmd.Flags().StringVarP(&gradeValue, "grade", "g", "", "Grade from 0 to 100")
	gradeCmd.Flags().StringVarP(&gradeFeedback, "feedback", "f", "", "Feedback for the student")
	rootCmd.AddCommand(rosterCmd, gradeCmd, gradesCmd)
}

// gradedAt renders when a grade was recorded, relative when parseable
func gradedAt(g client.Grade) string {
	if t, ok := g.Time(); ok {
		return humanize.Time(t)
	}
	return g.GradedAt
}

func runRoster(ctx context.Context, w io.Writer, courseArg string, asJSON bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	courseID, err := parseID("course id", courseArg)
	if err != nil {
		return fail(w, err)
	}
	token, _, err := e.session()
	if err != nil {
		return fail(w, err)
	}

	students, err := e.client.Roster(ctx, token, courseID)
	if err != nil {
		return failAPI(w, err, messages.LoadRosterFailed)
	}

	if asJSON {
		writeJSON(w, students)
		return exitOK
	}
	fmt.Fprint(w, formatRosterHuman(students))
	return exitOK
}

func formatRosterHuman(students []client.Student) string {
	if len(students) == 0 {
		return messages.NoStudents + "\n"
	}
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		id, name := strconv.Itoa(s.ID), plaintext.Clean(s.Username)
		if len(s.Grades) == 0 {
			rows = append(rows, []string{id, name, "-", "", ""})
			continue
		}
		// every grade, newest first; the student is named on the first row only
		for i := len(s.Grades) - 1; i >= 0; i-- {
			g := s.Grades[i]
			rows = append(rows, []string{
				id,
				name,
				fmt.Sprintf("%d (%s)", g.Value, forms.GradeBand(g.Value)),
				plaintext.Truncate(plaintext.Clean(g.Feedback), feedbackWidth),
				gradedAt(g),
			})
			id, name = "", ""
		}
	}
	return renderTable([]string{"ID", "STUDENT", "GRADE", "FEEDBACK", "GRADED"}, rows) + "\n"
}

func runGrade(ctx context.Context, w io.Writer, courseArg, studentArg, value, feedback string) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	courseID, err := parseID("course id", courseArg)
	if err != nil {
		return fail(w, err)
	}
	studentID, err := parseID("student id", studentArg)
	if err != nil {
		return fail(w, err)
	}
	// the server decides who may grade
	token, _, err := e.session()
	if err != nil {
		return fail(w, err)
	}

	n, err := forms.ParseGrade(value)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitRejected
	}
	input := forms.GradeInput{Grade: n, Feedback: feedback}
	if err := forms.Validate(input); err != nil {
		return fail(w, err)
	}

	err = e.client.SubmitGrade(ctx, token, client.GradeSubmission{
		StudentID: studentID,
		CourseID:  courseID,
		Grade:     input.Grade,
		Feedback:  input.Feedback,
	})
	if err != nil {
		return failAPI(w, err, messages.GradeFailed)
	}
	fmt.Fprintln(w, messages.GradeSubmitted)
	return exitOK
}

type gradesOutput struct {
	CourseID int            `json:"course_id"`
	Grades   []client.Grade `json:"grades"`
	Average  *float64       `json:"average,omitempty"`
}

func runGrades(ctx context.Context, w io.Writer, courseArg string, asJSON bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	courseID, err := parseID("course id", courseArg)
	if err != nil {
		return fail(w, err)
	}
	token, sess, err := e.session()
	if err != nil {
		return fail(w, err)
	}

	list, err := e.client.StudentGrades(ctx, token, courseID, sess.UserID)
	if err != nil {
		return failAPI(w, err, messages.LoadGradesFailed)
	}

	out := gradesOutput{CourseID: courseID, Grades: list}
	if len(list) > 0 {
		sum := 0
		for _, g := range list {
			sum += g.Value
		}
		avg := float64(sum) / float64(len(list))
		out.Average = &avg
	}

	if asJSON {
		writeJSON(w, out)
		return exitOK
	}
	fmt.Fprint(w, formatGradesHuman(out))
	return exitOK
}

func formatGradesHuman(out gradesOutput) string {
	if len(out.Grades) == 0 {
		return messages.NoGrades + "\n"
	}
	rows := make([][]string, 0, len(out.Grades))
	for _, g := range out.Grades {
		rows = append(rows, []string{
			strconv.Itoa(g.Value),
			forms.GradeBand(g.Value),
			plaintext.Truncate(plaintext.Clean(g.Feedback), feedbackWidth),
			gradedAt(g),
		})
	}
	s := renderTable([]string{"GRADE", "STATUS", "FEEDBACK", "GRADED"}, rows) + "\n"
	s += fmt.Sprintf("Average: %s over %d grade(s)\n", humanize.FtoaWithDigits(*out.Average, 1), len(out.Grades))
	return s
}
