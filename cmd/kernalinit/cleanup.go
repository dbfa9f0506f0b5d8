// Cleanup command destructively removes every trace of the footprint.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all footprint artifacts without restoring",
	Long: `Cleanup deletes every component artifact, its backup snapshots, and
its registry entry, in reverse install order. Unlike rollback it does
not restore prior host state; resources the install overwrote stay
overwritten.

Example:
  kernalinit cleanup
  kernalinit cleanup --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			fmt.Fprintln(os.Stderr, "cleanup:", err)
			os.Exit(exitSysError)
		}
		defer rt.close()

		report, err := rt.ctl.CleanupAll(cmd.Context())
		if err != nil {
			if errors.Is(err, types.ErrNotPrivileged) {
				fmt.Fprintln(os.Stderr, "cleanup: insufficient privileges, nothing changed")
				os.Exit(exitUserError)
			}
			fmt.Fprintln(os.Stderr, "cleanup:", err)
			os.Exit(exitSysError)
		}

		printReport(report)
		exitReport(report)
		return nil
	},
}
