package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/dungeonmaster/internal/campaignctx"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

func contextCmd(opts *globalOptions) *cobra.Command {
	var (
		history []string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "context <action>...",
		Short: "Preview the context and system prompt assembled for an action",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			action := strings.Join(args, " ")
			return withWorkspace(ctx, opts, func(w *workspace) error {
				cc := w.assembler.Build(ctx, action, history, contextfile.CharacterFacts{}, nil)
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(cc)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), campaignctx.FormatSystemPrompt(action, &cc))
				return err
			})
		},
	}
	cmd.Flags().StringArrayVar(&history, "history", nil, `prior turn, e.g. "Player: I enter the cave" (repeatable)`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the assembled context instead of the system prompt")
	return cmd
}
