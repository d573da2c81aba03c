// Package embed turns text into embedding vectors.
package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/paperchunk/internal/extract"
)

// DefaultModel is the embedding model used for chunks and summaries.
const DefaultModel = string(openai.SmallEmbedding3)

const (
	DefaultBatchSize     = 96
	defaultMaxConcurrent = 4
	maxAttempts          = 3
)

// Embedder embeds a single text. Blank text yields a nil vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder embeds many texts, returning one vector per input in input
// order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAI embeds with the OpenAI embeddings API.
type OpenAI struct {
	client        *openai.Client
	model         openai.EmbeddingModel
	BatchSize     int
	MaxConcurrent int
	RetryDelay    time.Duration
}

// NewOpenAI returns an embedder for apiKey. baseURL may be empty to use the
// public endpoint.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		client:        openai.NewClientWithConfig(cfg),
		model:         openai.EmbeddingModel(model),
		BatchSize:     DefaultBatchSize,
		MaxConcurrent: defaultMaxConcurrent,
		RetryDelay:    time.Second,
	}
}

// Model returns the embedding model name.
func (e *OpenAI) Model() string { return string(e.model) }

// Embed returns the embedding of text, or nil for blank text.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	vecs, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in batches of BatchSize, running up to
// MaxConcurrent requests at once. The result has one vector per input, in
// input order.
func (e *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := max(e.BatchSize, 1)
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.MaxConcurrent, 1))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		g.Go(func() error {
			vecs, err := e.request(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// request sends one embeddings call and orders the vectors by their index.
func (e *OpenAI) request(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := retry.DoWithData(
		func() (openai.EmbeddingResponse, error) {
			return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
				Input: texts,
				Model: e.model,
			})
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(max(e.RetryDelay, time.Millisecond)),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(extract.IsRetryable),
	)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vecs[d.Index] != nil {
			return nil, fmt.Errorf("openai embeddings: bad index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
