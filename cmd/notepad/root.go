package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarcoPoloResearchLab/notepad/internal/logging"
	"github.com/MarcoPoloResearchLab/notepad/internal/notebook"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultLocalFile = "notepad.json"

type rootOptions struct {
	apiURL    string
	localFile string
	noTags    bool
	logLevel  string
}

// app is built once per invocation from the global flags.
type app struct {
	session *notebook.Session
	source  notebook.Source
	logger  *zap.Logger
}

func newRootCommand() *cobra.Command {
	options := &rootOptions{}
	current := &app{}

	rootCmd := &cobra.Command{
		Use:           "notepad",
		Short:         "Read and edit notes against the notes API or a local slot file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			built, err := buildApp(options)
			if err != nil {
				return err
			}
			*current = *built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if current.logger != nil {
				_ = current.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&options.apiURL, "api-url", "", "Notes API base URL, for example http://localhost:4000/api")
	rootCmd.PersistentFlags().StringVar(&options.localFile, "local-file", "", "Slot file used when no API URL is given (default "+defaultLocalFile+")")
	rootCmd.PersistentFlags().BoolVar(&options.noTags, "no-tags", false, "Search title and content only")
	rootCmd.PersistentFlags().StringVar(&options.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newListCommand(current),
		newShowCommand(current),
		newAddCommand(current),
		newEditCommand(current),
		newDeleteCommand(current),
		newWatchCommand(current),
	)
	return rootCmd
}

func buildApp(options *rootOptions) (*app, error) {
	if options.apiURL != "" && options.localFile != "" {
		return nil, errors.New("--api-url and --local-file are mutually exclusive")
	}

	logger, err := logging.NewConsoleLogger(options.logLevel)
	if err != nil {
		return nil, err
	}

	var source notebook.Source
	if options.apiURL != "" {
		source, err = notebook.NewRemoteSource(options.apiURL, nil)
	} else {
		path := options.localFile
		if path == "" {
			path = defaultLocalFile
		}
		source, err = notebook.NewLocalSource(notebook.LocalConfig{Path: path, Logger: logger})
	}
	if err != nil {
		return nil, err
	}

	session, err := notebook.NewSession(notebook.SessionConfig{
		Source:  source,
		Options: notebook.MatchOptions{IncludeTags: !options.noTags},
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return &app{session: session, source: source, logger: logger}, nil
}

func printNote(out io.Writer, note notebook.Note) {
	title := note.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(out, "%s  %s\n", note.ID, title)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "  tags: %s\n", strings.Join(note.Tags, ", "))
	}
	for _, line := range strings.Split(note.Content, "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
}
