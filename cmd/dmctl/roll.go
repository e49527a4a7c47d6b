package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/dungeonmaster/internal/dice"
)

func rollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roll <expr>",
		Short: `Roll dice, e.g. "2d6+3"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := dice.NewRoller(nil).Roll(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %v = %d\n", res.Expression, res.Rolls, res.Total)
			return err
		},
	}
}
