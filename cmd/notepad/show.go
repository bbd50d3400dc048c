package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/notepad/internal/notebook"
	"github.com/spf13/cobra"
)

func newShowCommand(current *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a single note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.session.Load(cmd.Context()); err != nil {
				return fmt.Errorf("loading notes: %w", err)
			}
			note, ok := current.session.State().Find(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", notebook.ErrNoteNotFound, args[0])
			}
			printNote(cmd.OutOrStdout(), note)
			return nil
		},
	}
}
