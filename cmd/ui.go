// ABOUTME: Command that starts the interactive terminal interface
// ABOUTME: Also what the root command runs when given no subcommand

package cmd

import (
	"fmt"
	"os"

	"github.com/markalston/lms-cli/internal/debuglog"
	"github.com/markalston/lms-cli/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the interactive interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUI()
	},
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the interactive interface needs a terminal; see `lms --help` for scriptable commands")
	}
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer debuglog.Close()
	debuglog.Log("starting interface against %s", e.cfg.APIURL)
	return tui.Run(e.client, e.tokens)
}
