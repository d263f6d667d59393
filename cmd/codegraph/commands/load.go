package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codegraph-mcp/internal/ingest"
)

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <repo-path> <graph.json>",
		Short: "Replace a repo's index from a graph payload",
		Long: `Load reads a graph JSON document produced by an external analyzer and
replaces the repo's persisted index with it. Nodes commit before edges; rows
and edges that cannot be applied are skipped and counted, never fatal.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.stores.CloseAll()

			loader := ingest.NewLoader(rt.reg, rt.stores)
			stats, err := loader.LoadFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("Loaded %s\n", args[0])
			fmt.Printf("  nodes:      %d (%d skipped)\n", stats.Nodes, stats.SkippedNodes)
			fmt.Printf("  edges:      %d (%d skipped)\n", stats.Edges, stats.SkippedEdges)
			if stats.Embeddings > 0 {
				fmt.Printf("  embeddings: %d\n", stats.Embeddings)
			}
			fmt.Printf("  duration:   %s\n", stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
}
