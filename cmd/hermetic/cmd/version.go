package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hermetic-ci/hermetic/pkg/report"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("hermetic", report.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
