// ABOUTME: Persists the API bearer token between runs
// ABOUTME: Stores a single token file in the XDG config directory

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken is returned by Load when no token has been saved
var ErrNoToken = errors.New("no saved token")

// FileName is the token file inside the config directory
const FileName = "token"

// TokenStore manages the persisted token slot
type TokenStore struct {
	configDir string
}

// New creates a TokenStore rooted at configDir
func New(configDir string) *TokenStore {
	return &TokenStore{configDir: configDir}
}

// Path returns the token file location
func (s *TokenStore) Path() string {
	return filepath.Join(s.configDir, FileName)
}

// Load reads the saved token. A missing or blank file yields ErrNoToken.
func (s *TokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save writes the token, replacing any previous value
func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	// Write to a temp file first so a crash never leaves a half-written token
	tmp, err := os.CreateTemp(s.configDir, ".token-*")
	if err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing token: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("writing token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}

	if err := os.Rename(tmpName, s.Path()); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

// Clear removes the saved token. Clearing an empty slot is not an error.
func (s *TokenStore) Clear() error {
	err := os.Remove(s.Path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token: %w", err)
	}
	return nil
}
