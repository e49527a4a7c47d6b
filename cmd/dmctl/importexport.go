package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func importCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all documents with a JSON export",
		Long:  `Reads a bundle written by "dmctl export" (or the /api/export endpoint). Use "-" to read stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return withWorkspace(ctx, opts, func(w *workspace) error {
				n, err := w.store.Import(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d documents\n", n)
				return nil
			})
		},
	}
}

func exportCmd(opts *globalOptions) *cobra.Command {
	var out, id string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all documents as JSON, or one document as markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd.Context(), opts, func(w *workspace) error {
				dst := cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					dst = f
				}
				if id == "" {
					return w.store.Export(dst)
				}
				name, err := w.store.ExportFile(dst, id)
				if err != nil {
					return err
				}
				if out != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", name, out)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&id, "id", "", "export only this document's markdown")
	return cmd
}
