// ABOUTME: Configuration loader for the lms client
// ABOUTME: Resolves settings from flags, LMS_* environment variables, .env, and defaults

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. LMS_API_URL
const EnvPrefix = "LMS"

// DefaultAPIURL is where the learning platform API listens by default
const DefaultAPIURL = "http://localhost:4000"

// Viper keys
const (
	KeyAPIURL    = "api_url"
	KeyConfigDir = "config_dir"
	KeyDebug     = "debug"
	KeyLogLevel  = "log_level"
	KeyJSON      = "json"
)

// Config holds resolved client settings
type Config struct {
	APIURL    string
	ConfigDir string
	Debug     bool
	LogLevel  string
	JSON      bool
}

// New creates a viper instance with defaults and LMS_* environment binding.
// Flags are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyConfigDir, DefaultConfigDir())
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyJSON, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads a .env file from dir if one exists.
// Variables already set in the environment are not overridden.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the resolved values out of v and validates them
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		APIURL:    normalizeURL(v.GetString(KeyAPIURL)),
		ConfigDir: v.GetString(KeyConfigDir),
		Debug:     v.GetBool(KeyDebug),
		LogLevel:  strings.ToLower(v.GetString(KeyLogLevel)),
		JSON:      v.GetBool(KeyJSON),
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("LMS_API_URL is required")
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", cfg.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("API URL must use http or https, got %q", u.Scheme)
	}

	if cfg.ConfigDir == "" {
		return nil, fmt.Errorf("no config directory: set LMS_CONFIG_DIR or HOME")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	return cfg, nil
}

// DefaultConfigDir returns the default config directory following the XDG base directory layout
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "lms")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lms")
}

// normalizeURL adds http:// if the URL has no scheme and drops a trailing slash
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}
