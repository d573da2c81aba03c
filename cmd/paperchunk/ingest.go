package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/paperchunk/internal/pipeline"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		parallel int
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Ingest papers into the configured store",
		Long: `Ingest every supported file under the given paths (default: DOCS_DIR).

Documents are processed independently. A document whose content has not
changed since it was last stored is skipped unless --force is set.

Examples:
  paperchunk ingest                     # everything under DOCS_DIR
  paperchunk ingest papers/2005.11401v4.pdf
  paperchunk ingest --parallel 8 papers/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			roots := args
			if len(roots) == 0 {
				roots = []string{a.cfg.DocsDir}
			}

			var paths []string
			for _, root := range roots {
				found, err := pipeline.FindFiles(root)
				if err != nil {
					return err
				}
				paths = append(paths, found...)
			}
			if len(paths) == 0 {
				a.log.Warn("no supported files found", "paths", roots)
				return nil
			}

			comp, err := pipeline.Setup(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer comp.Close()

			if parallel <= 0 {
				parallel = a.cfg.WorkerCount
			}
			results := comp.Processor.ProcessFiles(cmd.Context(), paths, parallel, force)
			return report(cmd, results)
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "documents processed at once (default: WORKER_COUNT)")
	cmd.Flags().BoolVar(&force, "force", false, "reprocess documents whose content is unchanged")
	return cmd
}

// report prints one line per document and fails when any document failed.
func report(cmd *cobra.Command, results []pipeline.JobSnapshot) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOC\tSTATUS\tSECTIONS\tCHUNKS\tFACTS\tNOTE")
	failed := 0
	for _, r := range results {
		note := ""
		switch {
		case len(r.Progress.Errors) > 0:
			note = r.Progress.Errors[0]
		case len(r.Progress.Warnings) > 0:
			note = r.Progress.Warnings[0]
		}
		if r.Status == pipeline.StatusFailed {
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.DocID, r.Status, r.Progress.Sections, r.Progress.Chunks, r.Progress.Facts, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}
