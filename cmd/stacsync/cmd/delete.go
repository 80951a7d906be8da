package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aweris/stacsync"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete items by id",
	Long:  "Delete items by id. Items that do not exist are logged and counted as deleted.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) (err error) {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	jobs := make([]job, 0, len(args))
	for _, id := range args {
		jobs = append(jobs, job{
			op:     stacsync.OpDelete,
			req:    s.request(stacsync.FeatureID(id)),
			source: id,
		})
	}
	return s.run(cmd, jobs, conflictFail)
}
