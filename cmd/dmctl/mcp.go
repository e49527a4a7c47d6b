package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/dungeonmaster/internal/mcp"
)

func mcpCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the context tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withWorkspace(ctx, opts, func(w *workspace) error {
				srv, err := mcp.NewServer(version, mcp.Deps{
					Store:      w.store,
					Assembler:  w.assembler,
					Classifier: w.classifier,
					Recorder:   w.recorder,
				})
				if err != nil {
					return err
				}
				slog.Info("serving mcp over stdio", "documents", w.store.Len())
				return mcp.ServeStdio(ctx, srv)
			})
		},
	}
}
