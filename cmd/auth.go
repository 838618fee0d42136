// ABOUTME: Session commands: login, logout, register, whoami
// ABOUTME: Keeps the saved token in sync with the interactive client

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/messages"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPasswordFunc reads a password without echo; replaced in tests
var readPasswordFunc = term.ReadPassword

var (
	loginUsername string
	passwordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session token",
	Long: `Logs in with a username and password and saves the session token so
later commands and the interactive interface start logged in.

The password is prompted for without echo. Use --password-stdin to read
it from standard input instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runLogin(ctx, os.Stdout, stdin, loginUsername, passwordStdin)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session token",
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runLogout(os.Stdout)
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a student account",
	Long: `Creates a new student account. Teacher accounts are provisioned on
the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runRegister(ctx, os.Stdout, stdin, loginUsername, passwordStdin)
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Long:  `Shows the identity carried by the saved session token. No request is made.`,
	Run: func(cmd *cobra.Command, args []string) {
		runWithSignals(func(ctx context.Context) int {
			return runWhoami(os.Stdout, IsJSONOutput())
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted for when omitted)")
		c.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from standard input")
	}
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, whoamiCmd)
}

// promptLine prints label and reads a line from in
func promptLine(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	return readLine(in)
}

// readPassword reads a password from in when fromStdin is set, otherwise from
// the terminal without echo
func readPassword(w io.Writer, in *bufio.Reader, label string, fromStdin bool) (string, error) {
	if fromStdin {
		return readLine(in)
	}
	fmt.Fprint(w, label)
	data, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

func runLogin(ctx context.Context, w io.Writer, in io.Reader, username string, fromStdin bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}

	r := bufio.NewReader(in)
	if username == "" {
		if username, err = promptLine(w, r, "Username: "); err != nil {
			return fail(w, err)
		}
	}
	password, err := readPassword(w, r, "Password: ", fromStdin)
	if err != nil {
		return fail(w, err)
	}

	creds := forms.Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := forms.Validate(creds); err != nil {
		return fail(w, err)
	}

	token, err := e.client.Login(ctx, creds.Username, creds.Password)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		// a 401 here is bad credentials, not an expired session
		fmt.Fprintf(w, "Error: %s\n", plaintext.Clean(client.MessageOr(err, messages.LoginFailed)))
		return exitRejected
	}
	if err != nil {
		return fail(w, err)
	}

	sess, err := session.Decode(token)
	if err != nil {
		return fail(w, fmt.Errorf("%s: %w", messages.LoginFailed, err))
	}
	if err := e.tokens.Save(token); err != nil {
		return fail(w, err)
	}

	fmt.Fprintf(w, "Logged in as %s (%s)\n", plaintext.Clean(sess.Username), sess.Role)
	return exitOK
}

func runLogout(w io.Writer) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	if err := e.tokens.Clear(); err != nil {
		return fail(w, err)
	}
	fmt.Fprintln(w, "Logged out")
	return exitOK
}

func runRegister(ctx context.Context, w io.Writer, in io.Reader, username string, fromStdin bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}

	r := bufio.NewReader(in)
	if username == "" {
		if username, err = promptLine(w, r, "Username: "); err != nil {
			return fail(w, err)
		}
	}
	password, err := readPassword(w, r, "Password: ", fromStdin)
	if err != nil {
		return fail(w, err)
	}
	again := password
	if !fromStdin {
		if again, err = readPassword(w, r, "Confirm password: ", false); err != nil {
			return fail(w, err)
		}
	}

	reg := forms.Registration{
		Username:        strings.TrimSpace(username),
		Password:        password,
		ConfirmPassword: again,
	}
	if err := forms.Validate(reg); err != nil {
		return fail(w, err)
	}

	err = e.client.Register(ctx, client.RegisterRequest{
		Username: reg.Username,
		Password: reg.Password,
		Role:     messages.RegisterRole,
	})
	if err != nil {
		return failAPI(w, err, messages.RegisterFailed)
	}

	fmt.Fprintln(w, messages.Registered)
	return exitOK
}

type whoamiOutput struct {
	session.Session
	Expired bool `json:"expired"`
}

func runWhoami(w io.Writer, asJSON bool) int {
	e, err := newEnv()
	if err != nil {
		return fail(w, err)
	}
	_, sess, err := e.session()
	if err != nil {
		return fail(w, err)
	}

	expired := sess.Expired(time.Now())
	if asJSON {
		writeJSON(w, whoamiOutput{Session: sess, Expired: expired})
		return exitOK
	}

	fmt.Fprintf(w, "%s (%s), user id %d\n", plaintext.Clean(sess.Username), sess.Role, sess.UserID)
	switch {
	case sess.ExpiresAt.IsZero():
	case expired:
		fmt.Fprintf(w, "Warning: session expired %s, log in again\n", humanize.Time(sess.ExpiresAt))
	default:
		fmt.Fprintf(w, "Session expires %s\n", humanize.Time(sess.ExpiresAt))
	}
	return exitOK
}
