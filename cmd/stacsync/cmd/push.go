package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aweris/stacsync"
)

var pushCmd = &cobra.Command{
	Use:   "push <path>...",
	Short: "Create or replace items from feature files",
	Long: "Push local features to the catalog. Each feature is created, and " +
		"replaced instead when the catalog already holds an item with its id.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFeatures(cmd, stacsync.OpCreate, conflictReplace, args)
	},
}

func init() {
	pushCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(pushCmd)
}
