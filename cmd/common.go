// ABOUTME: Shared plumbing for lms subcommands
// ABOUTME: Builds the API client and token store, maps errors to exit codes, renders output

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/markalston/lms-cli/internal/client"
	"github.com/markalston/lms-cli/internal/config"
	"github.com/markalston/lms-cli/internal/debuglog"
	"github.com/markalston/lms-cli/internal/forms"
	"github.com/markalston/lms-cli/internal/plaintext"
	"github.com/markalston/lms-cli/internal/session"
	"github.com/markalston/lms-cli/internal/store"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK       = 0
	exitRejected = 1 // server rejected the request or input failed validation
	exitNoAccess = 2 // backend unreachable or not logged in
)

var errNotLoggedIn = errors.New("not logged in (run `lms login`)")

// stdin is where prompts and --password-stdin read from
var stdin io.Reader = os.Stdin

// env is what every subcommand works with
type env struct {
	cfg    *config.Config
	client *client.Client
	tokens *store.TokenStore
}

func newEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logDir := ""
	if cfg.Debug {
		logDir = cfg.ConfigDir
	}
	if err := debuglog.Init(logDir, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return &env{
		cfg:    cfg,
		client: client.New(cfg.APIURL),
		tokens: store.New(cfg.ConfigDir),
	}, nil
}

// session loads the saved token and decodes it
func (e *env) session() (string, session.Session, error) {
	token, err := e.tokens.Load()
	if errors.Is(err, store.ErrNoToken) {
		return "", session.Session{}, errNotLoggedIn
	}
	if err != nil {
		return "", session.Session{}, err
	}
	sess, err := session.Decode(token)
	if err != nil {
		return "", session.Session{}, fmt.Errorf("saved session is unreadable, log in again: %w", err)
	}
	return token, sess, nil
}

// runWithSignals runs fn with a context cancelled on SIGINT/SIGTERM and exits
// with its code
func runWithSignals(fn func(ctx context.Context) int) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := fn(ctx)
	cancel()
	debuglog.Close()
	if exitCode != exitOK {
		os.Exit(exitCode)
	}
}

// fail prints err and returns the exit code for it
func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %s\n", errorText(err))
	return exitCode(err)
}

// failAPI is fail for server calls: a rejection without a message is reported
// as fallback
func failAPI(w io.Writer, err error, fallback string) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && !errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintf(w, "Error: %s\n", plaintext.Clean(client.MessageOr(err, fallback)))
		return exitRejected
	}
	return fail(w, err)
}

func errorText(err error) string {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		return verr.First()
	}
	if msg := client.MessageOr(err, ""); msg != "" {
		return plaintext.Clean(msg)
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return "session rejected by server, log in again"
	}
	return err.Error()
}

func exitCode(err error) int {
	var verr *forms.ValidationError
	var apiErr *client.APIError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNotLoggedIn), errors.Is(err, client.ErrUnauthorized):
		return exitNoAccess
	case errors.As(err, &verr), errors.As(err, &apiErr):
		return exitRejected
	default:
		return exitNoAccess
	}
}

// parseID parses a positional id argument
func parseID(name, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, &forms.ValidationError{Fields: []forms.FieldError{{
			Field:   name,
			Message: fmt.Sprintf("%s must be a positive number, got %q", name, arg),
		}}}
	}
	return id, nil
}

// readLine reads one line from r without the trailing newline
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question, defaulting to no
func confirm(w io.Writer, in io.Reader, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	answer, err := readLine(bufio.NewReader(in))
	if err != nil {
		fmt.Fprintln(w)
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func writeJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable lays out rows under headers
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// requireArgs mirrors cobra.ExactArgs with a friendlier message
func requireArgs(names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != len(names) {
			return fmt.Errorf("expected %s", strings.Join(names, " "))
		}
		return nil
	}
}
