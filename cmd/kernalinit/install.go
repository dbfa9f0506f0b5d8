// Install command applies every footprint component.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install all footprint components",
	Long: `Install snapshots the affected host resources and applies every
footprint component in order: tag, service, loginject, reportforge.
Re-running install against a healthy footprint is a no-op; drifted
components are repaired in place.

A component failure does not abort the run; the remaining components
are still attempted and the failure is reported per component.

Example:
  kernalinit install
  kernalinit install --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			fmt.Fprintln(os.Stderr, "install:", err)
			os.Exit(exitSysError)
		}
		defer rt.close()

		report, err := rt.ctl.InstallAll(cmd.Context())
		if err != nil {
			if errors.Is(err, types.ErrNotPrivileged) {
				fmt.Fprintln(os.Stderr, "install: insufficient privileges, nothing changed")
				os.Exit(exitUserError)
			}
			fmt.Fprintln(os.Stderr, "install:", err)
			os.Exit(exitSysError)
		}

		printReport(report)
		exitReport(report)
		return nil
	},
}
