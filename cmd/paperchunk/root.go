package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/paperchunk/internal/config"
)

// app holds state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "paperchunk",
		Short: "Segment research papers into section-labelled chunks",
		Long: `paperchunk turns research papers into retrieval chunks.

Each paper is split into sections and subsections, every section is cut
into overlapping sentence-aligned windows, windows that are not prose are
dropped, and a chat model writes one fact per section. The facts are
condensed into a document summary. Chunks, summary and embeddings are
written to the configured store.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			a.cfg = config.Load()
			level := a.cfg.LogLevel
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newIngestCmd(a), newSegmentCmd(a))
	return root
}
