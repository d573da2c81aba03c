package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/paperchunk/internal/chunker"
	"github.com/dgallion1/paperchunk/internal/paper"
	"github.com/dgallion1/paperchunk/internal/parser"
	"github.com/dgallion1/paperchunk/internal/prose"
	"github.com/dgallion1/paperchunk/internal/segment"
)

type segmentOutput struct {
	DocID    string          `json:"doc_id"`
	Title    string          `json:"title"`
	Abstract string          `json:"abstract,omitempty"`
	Pages    int             `json:"pages"`
	Sections []sectionOutput `json:"sections"`
}

type sectionOutput struct {
	Label      string        `json:"section"`
	Subsection string        `json:"subsection,omitempty"`
	Chunks     []chunkOutput `json:"chunks"`
}

type chunkOutput struct {
	paper.Chunk
	Tokens int            `json:"tokens"`
	Prose  *prose.Metrics `json:"prose,omitempty"`
}

func newSegmentCmd(a *app) *cobra.Command {
	var (
		size, overlap int
		metrics       bool
	)
	cmd := &cobra.Command{
		Use:   "segment <file>",
		Short: "Print the sections and chunks of a paper without storing anything",
		Long: `Parse and segment one paper and print the result as JSON.

No model is called and nothing is written. Use --metrics to include the
prose classifier signals for each chunk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if size <= 0 {
				size = a.cfg.ChunkSize
			}
			// An explicit --overlap must fit the window; a configured one is
			// clamped by the windower.
			if cmd.Flags().Changed("overlap") {
				if overlap < 0 || overlap >= size {
					return fmt.Errorf("overlap (%d) must be between 0 and chunk size (%d)", overlap, size)
				}
			} else {
				overlap = a.cfg.ChunkOverlap
			}

			pr, err := parser.ForFile(path, parser.Options{PDFFallback: a.cfg.PDFFallbackPdftotext})
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			pages, err := pr.Pages(f, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			w := chunker.NewWindower(size, overlap)
			docID := paper.DocIDFromPath(path)
			out := segmentOutput{DocID: docID, Pages: len(pages), Sections: []sectionOutput{}}
			if len(pages) > 0 {
				out.Title, out.Abstract = segment.FrontMatter(pages[0])
			}
			for _, sec := range segment.Split(docID, pages, w) {
				so := sectionOutput{Label: sec.Label, Subsection: sec.Subsection, Chunks: []chunkOutput{}}
				for _, c := range sec.Chunks {
					co := chunkOutput{Chunk: c, Tokens: w.Counter.CountTokens(c.Content)}
					if metrics {
						m := prose.Inspect(c.Content)
						co.Prose = &m
					}
					so.Chunks = append(so.Chunks, co)
				}
				out.Sections = append(out.Sections, so)
			}
			a.log.Debug("segmented", "doc_id", docID, "pages", len(pages), "sections", len(out.Sections))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVar(&size, "chunk-size", 0, "tokens per chunk (default: CHUNK_SIZE)")
	cmd.Flags().IntVar(&overlap, "overlap", -1, "token overlap between chunks (default: CHUNK_OVERLAP)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "include prose classifier metrics per chunk")
	return cmd
}
