// ABOUTME: Debug logger that writes JSON lines to a file via zerolog
// ABOUTME: Keeps diagnostics off the terminal while the TUI owns the screen

package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the log file created inside the config directory
const FileName = "debug.log"

var (
	mu      sync.Mutex
	logFile *os.File
	logger  = zerolog.Nop()
)

// Init opens <configDir>/debug.log and enables logging at the given level.
// If configDir is empty, logging is disabled.
func Init(configDir, level string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	if configDir == "" {
		return nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	logPath := filepath.Join(configDir, FileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	logFile = f
	logger = newLogger(f, level)
	return nil
}

// SetOutput routes log lines to w. Used by tests.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	logger = newLogger(w, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Close closes the log file and disables logging
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logger = zerolog.Nop()
}

func current() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes an info message to the debug log
func Log(format string, args ...interface{}) {
	l := current()
	l.Info().Msg(fmt.Sprintf(format, args...))
}

// Debug writes a debug message
func Debug(format string, args ...interface{}) {
	l := current()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error with context
func Error(context string, err error) {
	if err == nil {
		return
	}
	l := current()
	l.Error().Err(err).Str("context", context).Msg("error")
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	l := current()
	l.Warn().Msg(fmt.Sprintf(format, args...))
}

// Request records one API round trip
func Request(id, method, path string, status int, took time.Duration, err error) {
	l := current()
	ev := l.Debug()
	if err != nil || status >= 500 {
		ev = l.Warn().Err(err)
	}
	ev.Str("request_id", id).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("took", took).
		Msg("api request")
}

// ParseLevel converts a string log level to a zerolog level.
// Unknown values map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
