// ABOUTME: Root command for the lms CLI
// ABOUTME: Handles global flags and configuration; with no subcommand starts the TUI

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/markalston/lms-cli/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	apiURL     string
	jsonOutput bool
	configDir  string
	debug      bool
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "lms",
	Short: "Terminal client for the learning platform",
	Long: `lms is a terminal client for the learning platform API.

Run without a subcommand to start the interactive interface. Subcommands
cover the same operations for scripts: login, courses, enroll, roster,
grade, and grades.

Environment Variables:
  LMS_API_URL     Backend API URL (default: ` + config.DefaultAPIURL + `)
  LMS_CONFIG_DIR  Where the session token and debug log are kept
  LMS_DEBUG       Write a debug log to LMS_CONFIG_DIR/debug.log
  LMS_LOG_LEVEL   debug, info, warn, or error (default: info)

A .env file in the working directory is read first; real environment
variables take precedence over it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(".")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUI()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory for the session token and debug log")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Write a debug log")
	annotateEnv(rootCmd.PersistentFlags())
}

// annotateEnv appends the environment variable each flag falls back to
func annotateEnv(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		f.Usage += fmt.Sprintf(" [$%s_%s]", config.EnvPrefix, key)
	})
}

// loadConfig resolves settings: flags, then LMS_* environment, then defaults
func loadConfig() (*config.Config, error) {
	v := config.New()
	if apiURL != "" {
		v.Set(config.KeyAPIURL, apiURL)
	}
	if configDir != "" {
		v.Set(config.KeyConfigDir, configDir)
	}
	if debug {
		v.Set(config.KeyDebug, true)
	}
	if jsonOutput {
		v.Set(config.KeyJSON, true)
	}
	return config.Load(v)
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		if apiURL != "" {
			return apiURL
		}
		return config.DefaultAPIURL
	}
	return cfg.APIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	if jsonOutput {
		return true
	}
	cfg, err := loadConfig()
	return err == nil && cfg.JSON
}
