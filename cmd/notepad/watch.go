package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarcoPoloResearchLab/notepad/internal/notebook"
	"github.com/spf13/cobra"
)

var errWatchUnsupported = errors.New("source does not support watching")

func newWatchCommand(current *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a line for every change made by another client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			watcher, ok := current.source.(notebook.Watcher)
			if !ok {
				return errWatchUnsupported
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			changes, err := watcher.Watch(ctx)
			if err != nil {
				return fmt.Errorf("watching notes: %w", err)
			}
			out := cmd.OutOrStdout()
			for change := range changes {
				if err := current.session.Load(ctx); err != nil && ctx.Err() == nil {
					return fmt.Errorf("reloading notes: %w", err)
				}
				fmt.Fprintf(out, "%s %s (%d notes)\n", change.Operation, strings.Join(change.NoteIDs, ","), len(current.session.State().Notes))
			}
			return nil
		},
	}
}
