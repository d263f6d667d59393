package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codegraph-mcp/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Long: `Serve the code graph tools (search, cypher, read, overview) over the MCP
stdio transport. The repo is resolved from the working directory the server
was started in. Stdout carries the protocol; all logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			slog.Info("mcp server starting", "cwd", cwd)
			return mcpserver.NewServer(rt.svc, cwd).ServeStdio(cmd.Context())
		},
	}
}
