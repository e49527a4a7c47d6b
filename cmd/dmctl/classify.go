package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func classifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <action>...",
		Short: "Print the action type and entities extracted from a player action",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), opts, func(w *workspace) error {
				ext := w.classifier.Classify(strings.Join(args, " "))
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ext)
			})
		},
	}
}
