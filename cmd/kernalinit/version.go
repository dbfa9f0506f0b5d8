// Version command for the kernalinit CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/kernalinit"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kernalinit version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kernalinit", kernalinit.Version)
	},
}
