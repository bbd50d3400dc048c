package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCommand(current *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.session.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting note: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", args[0])
			return nil
		},
	}
}
