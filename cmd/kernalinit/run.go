// Run command installs the footprint and keeps the loops alive until
// the process is signalled.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Install and keep the background loops running",
	Long: `Run performs an install and then blocks, letting the loginject and
reportforge loops tick, until SIGINT or SIGTERM. On shutdown the loops
are stopped within the configured grace period; installed state stays
on the host for a later status, rollback, or cleanup.

Example:
  kernalinit run
  kernalinit run --data-dir /var/lib/kernalinit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			fmt.Fprintln(os.Stderr, "run:", err)
			os.Exit(exitSysError)
		}
		defer rt.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := rt.ctl.InstallAll(ctx)
		if err != nil {
			if errors.Is(err, types.ErrNotPrivileged) {
				fmt.Fprintln(os.Stderr, "run: insufficient privileges, nothing changed")
				os.Exit(exitUserError)
			}
			fmt.Fprintln(os.Stderr, "run:", err)
			os.Exit(exitSysError)
		}
		printReport(report)
		if !report.OK() {
			rt.log.Warn("running with partial footprint")
		}

		rt.log.Info("footprint running, waiting for signal")
		<-ctx.Done()
		rt.log.Info("signal received, stopping loops")
		// rt.close stops the loops with the configured grace.
		return nil
	},
}
