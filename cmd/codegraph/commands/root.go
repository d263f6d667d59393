// Package commands implements the codegraph CLI using cobra.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codegraph-mcp/internal/config"
	"github.com/dshills/codegraph-mcp/internal/registry"
	"github.com/dshills/codegraph-mcp/internal/semantic/embedder"
	"github.com/dshills/codegraph-mcp/internal/service"
	"github.com/dshills/codegraph-mcp/internal/storage"
)

// NewRootCmd creates the root command with all subcommands registered
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "codegraph",
		Short: "Code knowledge graph index and retrieval server",
		Long: `codegraph persists externally produced code knowledge graphs and serves
them back through hybrid search, raw graph queries, an HTTP API, and MCP tools.

Examples:
  codegraph load /work/app graph.json
  codegraph serve
  codegraph mcp
  codegraph repos
  codegraph augment "user session handling"`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Stdout may carry the MCP protocol, so logs always go to stderr
			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.AddCommand(
		newLoadCmd(),
		newServeCmd(),
		newMCPCmd(),
		newReposCmd(),
		newDeleteCmd(),
		newAugmentCmd(),
		newVersionCmd(version),
	)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// runtime bundles the dependencies every command builds the same way
type runtime struct {
	cfg    *config.Config
	reg    *registry.Registry
	stores *storage.Manager
	svc    *service.Service
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	reg := registry.New(cfg.Home)
	stores := storage.NewManager(slog.Default())

	emb, err := embedder.NewFromEnv()
	if err != nil {
		// Search degrades to lexical-only without an embedder
		slog.Warn("embedder unavailable, semantic search disabled", "error", err)
		emb = nil
	}
	return &runtime{
		cfg:    cfg,
		reg:    reg,
		stores: stores,
		svc:    service.New(reg, stores, emb),
	}, nil
}
