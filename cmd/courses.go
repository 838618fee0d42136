// ABOUTME: Course commands: list, create, and enroll
// ABOUTME: Teachers see and create their own courses; students see all and enroll

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/session"
	"github.com/spf13/cobra"
)

const descriptionWidth = 48

var (
	courseTitle       string
	courseDescription string
	assumeYes         bool
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses",
	Long: `Lists courses. Teachers see the courses they teach; students see every
course with their enrollment status.`,
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runCourses(ctx, os.Stdout, IsJSONOutput())
		})
	},
}

var createCourseCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a course (teachers)",
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runCreateCourse(ctx, os.Stdout, courseTitle, courseDescription, IsJSONOutput())
		})
	},
}

var enrollCmd = &cobra.Command{
	Use:   "enroll COURSE_ID",
	Short: "Enroll in a course (students)",
	Args:  requireArgs("COURSE_ID"),
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runEnroll(ctx, os.Stdout, stdin, args[0], assumeYes)
		})
	},
}

func init() {
	createCourseCmd.Flags().StringVarP(&courseTitle, "title", "t", "", "Course title")
	createCourseCmd.Flags().StringVarP(&courseDescription, "description", "d", "", "Course description")
	enrollCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Enroll without asking for confirmation")

	coursesCmd.AddCommand(createCourseCmd)
	rootCmd.AddCommand(coursesCmd, enrollCmd)
}

func runCourses(ctx context.Context, w io.Writer, asJSON bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	token, sess, err := e.session()
	if err != nil {
		return fail(w, err)
	}

	list, err := e.client.Courses(ctx, token)
	if err != nil {
		return failAPI(w, err, messages.LoadCoursesError)
	}

	if asJSON {
		writeJSON(w, list)
		return exitOK
	}
	fmt.Fprint(w, formatCoursesHuman(sess, list))
	return exitOK
}

func formatCoursesHuman(sess session.Session, list []client.Course) string {
	if len(list) == 0 {
		return messages.NoCourses + "\n"
	}

	var headers []string
	rows := make([][]string, 0, len(list))
	if sess.IsTeacher() {
		headers = []string{"ID", "TITLE", "DESCRIPTION"}
		for _, c := range list {
			rows = append(rows, []string{
				strconv.Itoa(c.ID),
				plaintext.Clean(c.Title),
				plaintext.Truncate(plaintext.FromHTML(c.Description), descriptionWidth),
			})
		}
	} else {
		headers = []string{"ID", "TITLE", "INSTRUCTOR", "ENROLLED"}
		for _, c := range list {
			enrolled := "no"
			if c.IsEnrolled() {
				enrolled = "yes"
			}
			rows = append(rows, []string{
				strconv.Itoa(c.ID),
				plaintext.Clean(c.Title),
				plaintext.Clean(c.TeacherName),
				enrolled,
			})
		}
	}
	return renderTable(headers, rows) + "\n"
}

func runCreateCourse(ctx context.Context, w io.Writer, title, description string, asJSON bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	// the server decides who may create courses
	token, _, err := e.session()
	if err != nil {
		return fail(w, err)
	}

	input := forms.CourseInput{Title: title, Description: description}
	if err := forms.Validate(input); err != nil {
		return fail(w, err)
	}

	created, err := e.client.CreateCourse(ctx, token, client.NewCourse{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		return failAPI(w, err, messages.CreateFailed)
	}

	if asJSON {
		writeJSON(w, created)
		return exitOK
	}
	fmt.Fprintln(w, messages.CourseCreated)
	if created != nil {
		fmt.Fprintf(w, "  ID:    %d\n  Title: %s\n", created.ID, plaintext.Clean(created.Title))
	}
	return exitOK
}

func runEnroll(ctx context.Context, w io.Writer, in io.Reader, arg string, yes bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	courseID, err := parseID("course id", arg)
	if err != nil {
		return fail(w, err)
	}
	// the server decides who may enroll
	token, _, err := e.session()
	if err != nil {
		return fail(w, err)
	}

	list, err := e.client.Courses(ctx, token)
	if err != nil {
		return fail(w, err)
	}
	var target *client.Course
	for i := range list {
		if list[i].ID == courseID {
			target = &list[i]
			break
		}
	}
	if target == nil {
		fmt.Fprintf(w, "Error: course %d not found\n", courseID)
		return exitRejected
	}
	title := plaintext.Clean(target.Title)
	if target.IsEnrolled() {
		fmt.Fprintf(w, "Already enrolled in %s\n", title)
		return exitOK
	}

	if !yes && !confirm(w, in, fmt.Sprintf("Enroll in %s?", title)) {
		fmt.Fprintln(w, "Cancelled")
		return exitOK
	}

	if err := e.client.Enroll(ctx, token, courseID); err != nil {
		return failAPI(w, err, messages.EnrollFailed)
	}
	fmt.Fprintln(w, messages.Enrolled)
	return exitOK
}
