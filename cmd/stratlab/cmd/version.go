package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the build via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the stratlab version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stratlab", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
