package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/paperchunk/internal/embed"
	"github.com/dgallion1/paperchunk/internal/paper"
	"github.com/dgallion1/paperchunk/internal/parser"
	"github.com/dgallion1/paperchunk/internal/segment"
	"github.com/dgallion1/paperchunk/internal/store"
	"github.com/dgallion1/paperchunk/internal/summary"
)

// Processor runs one document through parse, segment, summarize, embed
// and store.
type Processor struct {
	store      store.Store
	segmenter  *segment.Segmenter
	aggregator *summary.Aggregator
	embedder   embed.BatchEmbedder
	log        *slog.Logger
	parserOpts parser.Options
}

// NewProcessor wires a Processor. embedder may be nil, leaving chunk
// embeddings empty.
func NewProcessor(st store.Store, seg *segment.Segmenter, agg *summary.Aggregator, emb embed.BatchEmbedder, log *slog.Logger, opts parser.Options) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		store:      st,
		segmenter:  seg,
		aggregator: agg,
		embedder:   emb,
		log:        log,
		parserOpts: opts,
	}
}

// Process runs the full ingest pipeline for a job. The outcome is
// recorded on the job.
func (p *Processor) Process(ctx context.Context, job *Job) {
	log := p.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	pr, err := parser.ForFile(job.Filename, p.parserOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	pages, err := pr.Pages(bytes.NewReader(job.FileData()), job.Filename)
	job.releaseFileData()
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetPages(len(pages))
	job.SetContentHash(ContentHashHex([]byte(strings.Join(pages, "\f"))))

	// Phase 1.5: Re-ingest check
	if dup, err := p.unchanged(ctx, job); err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if dup {
		log.Info("document unchanged, skipping")
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	title := job.Title
	if title == "" && len(pages) > 0 {
		title, _ = segment.FrontMatter(pages[0])
	}
	if title == "" {
		title = job.DocID
	}

	// Phase 2: Segment, with one fact request per section.
	job.SetStatus(StatusSegmenting, "segmenting")
	res, err := p.segmenter.Segment(ctx, job.DocID, pages)
	if err != nil {
		log.Error("segmentation interrupted", "error", err)
		job.AddError(fmt.Sprintf("segment: %s", err))
		job.SetStatus(StatusFailed, "segmenting")
		return
	}
	chunks := res.Chunks
	job.SetSegmented(len(res.Sections), len(chunks), len(res.Facts), res.Failed)
	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddWarning("no section text passed the prose filter")
	}
	if res.Failed > 0 {
		job.AddWarning(fmt.Sprintf("%d section fact requests failed", res.Failed))
	}

	// Phase 3: Summarize
	job.SetStatus(StatusSummarizing, "summarizing")
	sum := p.aggregator.Aggregate(ctx, res.Facts)
	job.SetSummarized(sum.Summary != "")

	// Phase 4: Embed chunks
	partial := false
	if p.embedder != nil && len(chunks) > 0 {
		job.SetStatus(StatusEmbedding, "embedding")
		if err := p.embedChunks(ctx, chunks); err != nil {
			log.Error("chunk embedding failed", "chunks", len(chunks), "error", err)
			job.AddError(fmt.Sprintf("embed: %s", err))
			partial = true
		} else {
			job.SetEmbedded(len(chunks))
		}
	}

	// Phase 5: Store
	job.SetStatus(StatusStoring, "storing")
	doc := paper.Document{
		DocID:            job.DocID,
		ArxivID:          job.DocID,
		Title:            title,
		Summary:          sum.Summary,
		SummaryEmbedding: sum.Embedding,
		ContentHash:      job.Snapshot().ContentHash,
	}
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		log.Error("document write failed", "error", err)
		job.AddError(fmt.Sprintf("store document: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	if err := p.store.ReplaceChunks(ctx, job.DocID, chunks); err != nil {
		log.Error("chunk write failed", "chunks", len(chunks), "error", err)
		job.AddError(fmt.Sprintf("store chunks: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	log.Info("document stored",
		"title", title, "sections", len(res.Sections), "chunks", len(chunks),
		"facts", len(res.Facts), "has_summary", sum.Summary != "")

	if partial {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// embedChunks fills chunk embeddings in place. On error no chunk is
// modified.
func (p *Processor) embedChunks(ctx context.Context, chunks []paper.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("got %d embeddings for %d chunks", len(vecs), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}
	return nil
}

// unchanged reports whether the stored document already has this job's
// content hash. Force always reprocesses.
func (p *Processor) unchanged(ctx context.Context, job *Job) (bool, error) {
	snap := job.Snapshot()
	if job.Force || snap.ContentHash == "" {
		return false, nil
	}
	doc, err := p.store.GetDocument(ctx, job.DocID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return doc.ContentHash == snap.ContentHash, nil
}
