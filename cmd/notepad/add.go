package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/notepad/internal/notebook"
	"github.com/spf13/cobra"
)

func newAddCommand(current *app) *cobra.Command {
	var draft notebook.Draft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := current.session.Save(cmd.Context(), draft)
			if err != nil {
				return fmt.Errorf("saving note: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note created: %s\n", saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "Note title")
	cmd.Flags().StringVar(&draft.Content, "content", "", "Note content (required)")
	cmd.Flags().StringSliceVar(&draft.Tags, "tag", nil, "Tag to attach; repeatable")
	return cmd
}
