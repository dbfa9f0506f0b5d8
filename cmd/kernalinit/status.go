// Status command verifies every footprint component.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Verify all footprint components",
	Long: `Status checks each component against the registry and the host and
reports one of: not_installed, installed, drifted. Read-only; requires
no privileges and changes nothing.

Example:
  kernalinit status
  kernalinit status --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			fmt.Fprintln(os.Stderr, "status:", err)
			os.Exit(exitSysError)
		}
		defer rt.close()

		states, err := rt.ctl.Status()
		if err != nil {
			fmt.Fprintln(os.Stderr, "status:", err)
			os.Exit(exitSysError)
		}

		printStates(states)
		return nil
	},
}
