package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <repo>",
		Short: "Delete a repo's index by id or path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.stores.CloseAll()

			repo, err := rt.svc.ResolveRef(args[0])
			if err != nil {
				return err
			}
			if err := rt.stores.Close(repo.ID); err != nil {
				return err
			}
			if err := rt.reg.Delete(repo.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted %s (%s)\n", repo.RepoPath, repo.ID)
			return nil
		},
	}
}
