package main

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/notepad/internal/notebook"
	"github.com/spf13/cobra"
)

// Flags left unset keep the note's current value.
func newEditCommand(current *app) *cobra.Command {
	var (
		title   string
		content string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := current.session.Load(cmd.Context()); err != nil {
				return fmt.Errorf("loading notes: %w", err)
			}
			existing, ok := current.session.State().Find(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", notebook.ErrNoteNotFound, args[0])
			}

			draft := notebook.Draft{
				ID:      existing.ID,
				Title:   existing.Title,
				Content: existing.Content,
				Tags:    existing.Tags,
			}
			if cmd.Flags().Changed("title") {
				draft.Title = title
			}
			if cmd.Flags().Changed("content") {
				draft.Content = content
			}
			if cmd.Flags().Changed("tag") {
				draft.Tags = tags
			}

			saved, err := current.session.Save(cmd.Context(), draft)
			if err != nil {
				return fmt.Errorf("saving note: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note updated: %s\n", saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Replacement tags; repeatable")
	return cmd
}
