package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

func seedCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>...",
		Short: "Apply YAML seed files to the campaign",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withWorkspace(ctx, opts, func(w *workspace) error {
				for _, path := range args {
					seed, err := contextfile.LoadSeedFile(path)
					if err != nil {
						return err
					}
					n, err := contextfile.ApplySeed(ctx, w.store, seed)
					if err != nil {
						return fmt.Errorf("seed %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d documents\n", path, n)
				}
				return nil
			})
		},
	}
}
