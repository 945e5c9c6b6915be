package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set by main at startup.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the img2pdf version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "img2pdf %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
