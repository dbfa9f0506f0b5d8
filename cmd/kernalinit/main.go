// Package main provides the kernalinit CLI: lifecycle management for
// the agent's host footprint (install, status, rollback, cleanup) plus
// the standalone crash-report generator.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
}
