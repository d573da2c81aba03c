package segment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/paperchunk/internal/chunker"
	"github.com/dgallion1/paperchunk/internal/extract"
	"github.com/dgallion1/paperchunk/internal/paper"
)

// FactExtractor returns one short fact sentence for a section's text.
type FactExtractor interface {
	SectionFact(ctx context.Context, text string) (string, error)
}

// Result is the outcome of segmenting one document.
type Result struct {
	Sections []paper.Section
	Chunks   []paper.Chunk
	Facts    []string // at most one per section, in section order
	Failed   int      // fact requests that errored
}

// Segmenter runs Split and asks for one fact per flushed section.
type Segmenter struct {
	windower      *chunker.Windower
	facts         FactExtractor
	log           *slog.Logger
	maxConcurrent int
}

// New returns a Segmenter. facts may be nil, in which case no facts are
// requested.
func New(w *chunker.Windower, facts FactExtractor, log *slog.Logger, maxConcurrent int) *Segmenter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{windower: w, facts: facts, log: log, maxConcurrent: maxConcurrent}
}

// Segment splits pages into sections and chunks, then requests fact
// sentences for the sections concurrently. A failed or empty fact request
// drops that section's fact and nothing else. The returned error is non-nil
// only when ctx ends first; the sections and chunks are complete even then.
func (s *Segmenter) Segment(ctx context.Context, docID string, pages []string) (*Result, error) {
	sections := Split(docID, pages, s.windower)
	res := &Result{Sections: sections, Chunks: paper.FlattenChunks(sections)}
	if s.facts == nil || len(sections) == 0 {
		return res, nil
	}

	log := s.log.With("doc_id", docID)
	facts := make([]string, len(sections))
	failed := make([]bool, len(sections))

	g := new(errgroup.Group)
	g.SetLimit(s.maxConcurrent)
	for i, sec := range sections {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			start := time.Now()
			fact, err := s.facts.SectionFact(ctx, sec.Text)
			switch {
			case errors.Is(err, extract.ErrNoResult):
				log.Debug("no fact for section", "section", sec.Label)
			case err != nil:
				log.Warn("fact extraction failed", "section", sec.Label, "error", err)
				failed[i] = true
			default:
				facts[i] = fact
				log.Debug("fact extracted", "section", sec.Label, "duration_ms", time.Since(start).Milliseconds())
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range facts {
		if f != "" {
			res.Facts = append(res.Facts, f)
		}
		if failed[i] {
			res.Failed++
		}
	}
	log.Info("segmented document",
		"sections", len(sections), "chunks", len(res.Chunks),
		"facts", len(res.Facts), "fact_errors", res.Failed)
	return res, ctx.Err()
}
