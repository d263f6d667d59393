package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codegraph-mcp/internal/augment"
)

func newAugmentCmd() *cobra.Command {
	var cwd string

	cmd := &cobra.Command{
		Use:   "augment <pattern>",
		Short: "Print graph context for a pattern, or nothing",
		Long: `Augment resolves the repo owning the working directory and prints graph
context (matching symbols with callers, callees, and process membership) for
the pattern. It is built for hook use: it always exits 0 and prints nothing
when there is nothing useful to say.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				// Hook path: broken config must not break the host tool
				return nil
			}
			defer rt.stores.CloseAll()

			if cwd == "" {
				if cwd, err = os.Getwd(); err != nil {
					return nil
				}
			}

			engine := augment.New(rt.reg, rt.stores)
			if out := engine.Augment(cmd.Context(), args[0], cwd); out != "" {
				fmt.Print(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory to resolve the repo (default current)")
	return cmd
}
