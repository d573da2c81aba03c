// Package summary condenses the per-section fact sentences of a paper into
// one paragraph and embeds it.
package summary

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgallion1/paperchunk/internal/embed"
	"github.com/dgallion1/paperchunk/internal/extract"
)

// Summarizer condenses ordered fact sentences into one paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, facts []string) (string, error)
}

// Result of aggregating one document.
type Result struct {
	Summary   string
	Embedding []float32 // nil when there is no summary or embedding failed
}

// Aggregator turns a document's fact sentences into its summary.
type Aggregator struct {
	summarizer Summarizer
	embedder   embed.Embedder
	log        *slog.Logger
}

// New returns an Aggregator. embedder may be nil to skip the summary
// embedding.
func New(s Summarizer, e embed.Embedder, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{summarizer: s, embedder: e, log: log}
}

// Aggregate summarizes facts, which must be in document order. It never
// fails: a summarizer error yields an empty summary and an embedder error a
// nil embedding.
func (a *Aggregator) Aggregate(ctx context.Context, facts []string) Result {
	if len(facts) == 0 || a.summarizer == nil {
		return Result{}
	}

	text, err := a.summarizer.Summarize(ctx, facts)
	switch {
	case errors.Is(err, extract.ErrNoResult):
		a.log.Warn("summarizer returned nothing", "facts", len(facts))
		return Result{}
	case err != nil:
		a.log.Error("summarize failed", "facts", len(facts), "error", err)
		return Result{}
	case text == "":
		return Result{}
	}

	res := Result{Summary: text}
	if a.embedder == nil {
		return res
	}
	vec, err := a.embedder.Embed(ctx, text)
	if err != nil {
		a.log.Error("summary embedding failed", "error", err)
		return res
	}
	res.Embedding = vec
	return res
}
