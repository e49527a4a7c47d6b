package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func filesCmd(opts *globalOptions) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List context files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), opts, func(w *workspace) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tFILENAME\tPRIORITY\tTAGS\tUPDATED")
				for _, d := range w.store.All() {
					if tag != "" && !d.HasAnyTag(tag) {
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
						d.ID, d.Filename, d.Priority, strings.Join(d.Tags, ","), d.LastUpdated.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only list files carrying this tag")
	return cmd
}
