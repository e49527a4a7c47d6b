package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

func initCmd(opts *globalOptions) *cobra.Command {
	var name, class, background string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default character documents",
		Long: `Writes the default character sheet, progression journal, spell book,
combat log, relationships and quest log, overwriting documents with the same
IDs. Other documents are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withWorkspace(ctx, opts, func(w *workspace) error {
				if err := w.store.InitializeDefaults(ctx, name, class, background); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Initialised %d documents for %s the %s\n", w.store.Len(), name, class)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Adventurer", "character name")
	cmd.Flags().StringVar(&class, "class", contextfile.DefaultClass, "character class")
	cmd.Flags().StringVar(&background, "background", contextfile.DefaultBackground, "character background")
	return cmd
}
