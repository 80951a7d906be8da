package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/stacsync"
)

var createCmd = &cobra.Command{
	Use:   "create <path>...",
	Short: "Create items from feature files",
	Long: "Create one item per feature found in the given files and directories. " +
		"Existing items fail the run unless --on-conflict says otherwise.",
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().String("on-conflict", string(conflictFail), "what to do with existing items: fail, skip or replace")
	createCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	viper.BindPFlag("on_conflict", createCmd.Flags().Lookup("on-conflict"))
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	policy, err := parseConflictPolicy(viper.GetString("on_conflict"))
	if err != nil {
		return err
	}
	return runFeatures(cmd, stacsync.OpCreate, policy, args)
}

// runFeatures loads features from paths and applies op to each.
func runFeatures(cmd *cobra.Command, op stacsync.Operation, policy conflictPolicy, paths []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	jobs, err := loadFeatureJobs(cmd, s, op, paths)
	if err != nil {
		return err
	}
	return s.run(cmd, jobs, policy)
}
