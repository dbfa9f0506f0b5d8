// Rollback command restores the host to its pre-install state.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back all footprint components",
	Long: `Rollback stops the background loops, restores each component's host
resources from its backup snapshot, and clears the registry entries.
Components roll back in reverse install order so nothing re-creates an
artifact after its restore. Rolling back when nothing is installed is
a no-op.

A partial restore is reported as degraded for that component; the
remaining components are still attempted.

Example:
  kernalinit rollback
  kernalinit rollback --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			fmt.Fprintln(os.Stderr, "rollback:", err)
			os.Exit(exitSysError)
		}
		defer rt.close()

		report, err := rt.ctl.RollbackAll(cmd.Context())
		if err != nil {
			if errors.Is(err, types.ErrNotPrivileged) {
				fmt.Fprintln(os.Stderr, "rollback: insufficient privileges, nothing changed")
				os.Exit(exitUserError)
			}
			fmt.Fprintln(os.Stderr, "rollback:", err)
			os.Exit(exitSysError)
		}

		printReport(report)
		exitReport(report)
		return nil
	},
}
