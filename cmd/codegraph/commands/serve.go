package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codegraph-mcp/internal/httpapi"
	"github.com/dshills/codegraph-mcp/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with MCP mounted at /api/mcp",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.stores.CloseAll()

			if addr == "" {
				addr = rt.cfg.HTTPAddr
			}

			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			mcp := mcpserver.NewServer(rt.svc, cwd)
			srv := httpapi.New(rt.svc, addr, mcp.HTTPHandler())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				slog.Info("shutting down", "signal", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "bind address (default from config)")
	return cmd
}
