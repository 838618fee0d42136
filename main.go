// ABOUTME: Entry point for the lms CLI
// ABOUTME: Terminal client for the learning platform: interactive UI plus scriptable commands

package main

import (
	"fmt"
	"os"

	"github.com/markalston/lms-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
