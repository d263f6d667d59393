package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReposCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List registered repo indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			repos, err := rt.reg.List(true)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Println("No repos indexed.")
				return nil
			}
			for _, repo := range repos {
				fmt.Printf("%s  %s\n", repo.ID, repo.RepoPath)
				fmt.Printf("  indexed: %s  files: %d  nodes: %d  edges: %d\n",
					repo.IndexedAt.Format("2006-01-02 15:04"),
					repo.Stats.Files, repo.Stats.Nodes, repo.Stats.Edges)
			}
			return nil
		},
	}
}
