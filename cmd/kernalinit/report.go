// Report command generates a synthetic crash report without touching
// the footprint.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/EsKaye/LilithOS-KernalInit/internal/fsutil"
	"github.com/EsKaye/LilithOS-KernalInit/pkg/synthreport"
)

var (
	reportSeed int64
	reportOut  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate one synthetic crash report",
	Long: `Report runs the crash-report generator once and prints the result to
stdout, or writes it into a directory with --out. The same --seed
always yields the same report.

Example:
  kernalinit report
  kernalinit report --seed 42
  kernalinit report --seed 42 --out /tmp/reports`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := synthreport.Options{Now: time.Now(), Host: synthreport.DefaultHost()}
		if cmd.Flags().Changed("seed") {
			opts.Seed = &reportSeed
		}

		report, err := synthreport.Generate(opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, "report:", err)
			os.Exit(exitSysError)
		}

		if reportOut == "" {
			fmt.Print(report.Render())
			return nil
		}

		if err := os.MkdirAll(reportOut, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "report:", err)
			os.Exit(exitSysError)
		}
		path := filepath.Join(reportOut, report.Filename())
		if err := fsutil.WriteFileAtomic(path, []byte(report.Render()), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "report:", err)
			os.Exit(exitSysError)
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	reportCmd.Flags().Int64Var(&reportSeed, "seed", 0, "generator seed for reproducible output")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "directory to write the report into (default: stdout)")
}
