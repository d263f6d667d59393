package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/codegraph-mcp/internal/storage"
)

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codegraph %s\n", version)
			fmt.Printf("Build Mode: %s\n", storage.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
			fmt.Printf("Schema Version: %s\n", storage.CurrentSchemaVersion)
		},
	}
}
