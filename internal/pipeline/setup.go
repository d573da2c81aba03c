package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/paperchunk/internal/chunker"
	"github.com/dgallion1/paperchunk/internal/config"
	"github.com/dgallion1/paperchunk/internal/embed"
	"github.com/dgallion1/paperchunk/internal/extract"
	"github.com/dgallion1/paperchunk/internal/parser"
	"github.com/dgallion1/paperchunk/internal/pathstore"
	"github.com/dgallion1/paperchunk/internal/segment"
	"github.com/dgallion1/paperchunk/internal/store"
	"github.com/dgallion1/paperchunk/internal/summary"
)

// Components are the long-lived collaborators built from configuration.
type Components struct {
	Store     store.Store
	LLM       extract.Client
	Embedder  *embed.OpenAI
	Processor *Processor
}

// Setup opens the configured store and model clients and wires a
// Processor around them.
func Setup(cfg config.Config, log *slog.Logger) (*Components, error) {
	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	opts := extract.Options{
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
		Logger:     log,
	}
	var llm extract.Client
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		llm = extract.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts)
	default:
		llm = extract.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, opts)
	}
	emb := embed.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)

	w := chunker.NewWindower(cfg.ChunkSize, cfg.ChunkOverlap)
	seg := segment.New(w, llm, log, cfg.MaxConcurrentFacts)
	agg := summary.New(llm, emb, log)
	p := NewProcessor(st, seg, agg, emb, log, parser.Options{PDFFallback: cfg.PDFFallbackPdftotext})

	log.Info("pipeline ready",
		"store", cfg.StoreBackend, "llm_provider", cfg.LLMProvider, "chat_model", llm.Model(),
		"embedding_model", emb.Model(), "chunk_size", w.Size, "chunk_overlap", w.Overlap)
	return &Components{Store: st, LLM: llm, Embedder: emb, Processor: p}, nil
}

// OpenStore opens the configured store backend.
func OpenStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		db, err := store.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.StorePathstore:
		return pathstore.NewStore(pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Close releases the store and any client connections.
func (c *Components) Close() error {
	if cl, ok := c.LLM.(interface{ Close() }); ok {
		cl.Close()
	}
	return c.Store.Close()
}
