package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/paperchunk/internal/chunker"
	"github.com/dgallion1/paperchunk/internal/paper"
	"github.com/dgallion1/paperchunk/internal/parser"
	"github.com/dgallion1/paperchunk/internal/segment"
	"github.com/dgallion1/paperchunk/internal/store"
	"github.com/dgallion1/paperchunk/internal/summary"
)

const paperText = "A Study of Retrieval\nJane Doe, John Roe, Alex Poe\nAbstract\n" +
	"We study retrieval augmented generation for open domain question answering tasks.\f" +
	"1 Introduction\nLarge language models store factual knowledge in their parameters but cannot easily revise it.\n\n" +
	"2 Method\nOur retriever encodes every passage with a dense bidirectional encoder before indexing.\n\n" +
	"References\n[1] Lewis et al. Retrieval augmented generation for knowledge intensive tasks. 2020.\n"

// fakeLLM answers fact requests with the first words of the section.
type fakeLLM struct {
	factCalls    atomic.Int32
	summaryCalls atomic.Int32
	summaryErr   error
}

func (f *fakeLLM) SectionFact(ctx context.Context, text string) (string, error) {
	f.factCalls.Add(1)
	words := strings.Fields(text)
	if len(words) > 3 {
		words = words[:3]
	}
	return "Fact: " + strings.Join(words, " "), nil
}

func (f *fakeLLM) Summarize(ctx context.Context, facts []string) (string, error) {
	f.summaryCalls.Add(1)
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return strings.Join(facts, " "), nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(i), float32(len(t))}
	}
	return out, nil
}

// failingStore rejects chunk writes.
type failingStore struct {
	store.Store
}

func (failingStore) ReplaceChunks(context.Context, string, []paper.Chunk) error {
	return errors.New("disk full")
}

type fixture struct {
	store store.Store
	llm   *fakeLLM
	emb   *fakeEmbedder
	proc  *Processor
}

func newFixture(t *testing.T, wrap func(store.Store) store.Store) *fixture {
	t.Helper()
	db, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var st store.Store = db
	if wrap != nil {
		st = wrap(db)
	}
	f := &fixture{store: st, llm: &fakeLLM{}, emb: &fakeEmbedder{}}
	w := &chunker.Windower{Size: 60, Overlap: 10, Counter: chunker.WordCounter}
	log := testLogger()
	seg := segment.New(w, f.llm, log, 2)
	agg := summary.New(f.llm, f.emb, log)
	f.proc = NewProcessor(st, seg, agg, f.emb, log, parser.Options{})
	return f
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func textJob(name, content string) *Job {
	return NewJob("", name, "", []byte(content))
}

func TestProcess_Completed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	job := textJob("2005.11401v4.txt", paperText)
	f.proc.Process(ctx, job)

	snap := job.Snapshot()
	require.Equal(t, StatusCompleted, snap.Status, "errors: %v", snap.Progress.Errors)
	assert.Equal(t, "2005.11401v4", snap.DocID)
	assert.Equal(t, 2, snap.Progress.Pages)
	assert.Equal(t, 3, snap.Progress.Sections)
	assert.Equal(t, 3, snap.Progress.Chunks)
	assert.Equal(t, 3, snap.Progress.Facts)
	assert.Equal(t, 3, snap.Progress.Embedded)
	assert.True(t, snap.Progress.HasSummary)
	assert.NotEmpty(t, snap.ContentHash)
	assert.Nil(t, job.FileData(), "upload should be released after parsing")

	doc, err := f.store.GetDocument(ctx, "2005.11401v4")
	require.NoError(t, err)
	assert.Equal(t, "A Study of Retrieval", doc.Title)
	assert.Equal(t, "2005.11401v4", doc.ArxivID)
	assert.Equal(t, "Fact: We study retrieval Fact: Large language models Fact: Our retriever encodes", doc.Summary)
	assert.Equal(t, []float32{float32(len(doc.Summary))}, doc.SummaryEmbedding)
	assert.Equal(t, snap.ContentHash, doc.ContentHash)

	chunks, err := f.store.Chunks(ctx, "2005.11401v4")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Abstract", chunks[0].Section)
	assert.Equal(t, "1 Introduction", chunks[1].Section)
	assert.Equal(t, "2 Method", chunks[2].Section)
	for i, c := range chunks {
		assert.Equal(t, i, c.Seq)
		assert.NotContains(t, c.Content, "Lewis et al", "references must not be chunked")
		assert.Len(t, c.Embedding, 2)
	}
}

func TestProcess_TitleOverride(t *testing.T) {
	f := newFixture(t, nil)
	job := NewJob("custom-id", "paper.txt", "Given Title", []byte(paperText))
	f.proc.Process(context.Background(), job)
	require.Equal(t, StatusCompleted, job.CurrentStatus())

	doc, err := f.store.GetDocument(context.Background(), "custom-id")
	require.NoError(t, err)
	assert.Equal(t, "Given Title", doc.Title)
}

func TestProcess_SkipsUnchangedUnlessForced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first := textJob("p.txt", paperText)
	f.proc.Process(ctx, first)
	require.Equal(t, StatusCompleted, first.CurrentStatus())
	calls := f.llm.factCalls.Load()

	again := textJob("p.txt", paperText)
	f.proc.Process(ctx, again)
	assert.Equal(t, StatusDupSkipped, again.CurrentStatus())
	assert.Equal(t, calls, f.llm.factCalls.Load(), "skipped job must not call the model")

	forced := textJob("p.txt", paperText)
	forced.Force = true
	f.proc.Process(ctx, forced)
	assert.Equal(t, StatusCompleted, forced.CurrentStatus())

	changed := textJob("p.txt", strings.Replace(paperText, "open domain", "closed book", 1))
	f.proc.Process(ctx, changed)
	assert.Equal(t, StatusCompleted, changed.CurrentStatus())
}

func TestProcess_NoChunksIsCompletedWithWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	job := textJob("noise.txt", "Abstract\nTable 2: 12 45 78 90 3 21 11 42 17 88\n\nReferences\n[1] A. B. 2020.")
	f.proc.Process(ctx, job)

	snap := job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Zero(t, snap.Progress.Chunks)
	assert.NotEmpty(t, snap.Progress.Warnings)
	assert.Zero(t, f.emb.calls, "nothing to embed")

	_, err := f.store.GetDocument(ctx, "noise")
	assert.NoError(t, err, "document row is still written")
}

func TestProcess_EmbeddingFailureIsPartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.emb.err = errors.New("rate limited")

	job := textJob("p.txt", paperText)
	f.proc.Process(ctx, job)

	snap := job.Snapshot()
	assert.Equal(t, StatusPartial, snap.Status)
	assert.Zero(t, snap.Progress.Embedded)
	require.NotEmpty(t, snap.Progress.Errors)
	assert.Contains(t, snap.Progress.Errors[0], "rate limited")

	chunks, err := f.store.Chunks(ctx, "p")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Nil(t, c.Embedding)
	}
}

func TestProcess_SummaryFailureStillCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.llm.summaryErr = errors.New("model overloaded")

	job := textJob("p.txt", paperText)
	f.proc.Process(ctx, job)
	assert.Equal(t, StatusCompleted, job.CurrentStatus())

	doc, err := f.store.GetDocument(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, doc.Summary)
	assert.Nil(t, doc.SummaryEmbedding)
}

func TestProcess_StoreFailure(t *testing.T) {
	f := newFixture(t, func(s store.Store) store.Store { return failingStore{s} })

	job := textJob("p.txt", paperText)
	f.proc.Process(context.Background(), job)

	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "storing", snap.Phase)
	require.NotEmpty(t, snap.Progress.Errors)
	assert.Contains(t, snap.Progress.Errors[0], "disk full")
}

func TestProcess_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, nil)
	job := textJob("table.csv", "a,b\n1,2")
	f.proc.Process(context.Background(), job)
	assert.Equal(t, StatusFailed, job.CurrentStatus())
	assert.Zero(t, f.llm.factCalls.Load())
}

func TestProcess_CanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := textJob("p.txt", paperText)
	f.proc.Process(ctx, job)
	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "segmenting", snap.Phase)
}

func TestProcessFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(paperText), 0o644))
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.txt"))

	f := newFixture(t, nil)
	snaps := f.proc.ProcessFiles(context.Background(), paths, 2, false)
	require.Len(t, snaps, 4)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, snaps[i].DocID)
		assert.Equal(t, StatusCompleted, snaps[i].Status)
	}
	assert.Equal(t, StatusFailed, snaps[3].Status)
	assert.Equal(t, "missing", snaps[3].DocID)

	list, err := f.store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)

	// A second run skips every unchanged document.
	snaps = f.proc.ProcessFiles(context.Background(), paths[:3], 3, false)
	for _, s := range snaps {
		assert.Equal(t, StatusDupSkipped, s.Status)
	}
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.txt", "skip.csv", "sub/c.md"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	got, err := FindFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "sub", "c.md"),
	}, got)

	single := filepath.Join(dir, "a.txt")
	got, err = FindFiles(single)
	require.NoError(t, err)
	assert.Equal(t, []string{single}, got)

	_, err = FindFiles(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	f := newFixture(t, nil)
	o := NewOrchestrator(f.proc, 2, 4, time.Hour, testLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := textJob("p.txt", paperText)
	require.NoError(t, o.Submit(job))
	assert.Same(t, job, o.GetJob(job.ID))

	require.Eventually(t, func() bool {
		return o.GetJob(job.ID).CurrentStatus().Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, StatusCompleted, job.CurrentStatus())
}

func TestOrchestrator_QueueFull(t *testing.T) {
	f := newFixture(t, nil)
	// Not started: nothing drains the queue.
	o := NewOrchestrator(f.proc, 1, 1, time.Hour, testLogger())

	require.NoError(t, o.Submit(textJob("a.txt", paperText)))
	assert.Equal(t, 1, o.QueueDepth())

	overflow := textJob("b.txt", paperText)
	err := o.Submit(overflow)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, overflow.CurrentStatus())
	o.Stop()
}
