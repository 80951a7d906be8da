package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aweris/stacsync"
)

var replaceCmd = &cobra.Command{
	Use:   "replace <path>...",
	Short: "Replace existing items from feature files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFeatures(cmd, stacsync.OpReplace, conflictFail, args)
	},
}

func init() {
	replaceCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(replaceCmd)
}
