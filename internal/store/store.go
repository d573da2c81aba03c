// Package store persists documents and their chunks.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/dgallion1/paperchunk/internal/paper"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("store: document not found")

// Store is the document and chunk store.
type Store interface {
	// UpsertDocument inserts or replaces the document row by DocID.
	UpsertDocument(ctx context.Context, doc paper.Document) error
	// ReplaceChunks deletes every chunk of docID, then inserts chunks.
	ReplaceChunks(ctx context.Context, docID string, chunks []paper.Chunk) error
	GetDocument(ctx context.Context, docID string) (*paper.Document, error)
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)
	Chunks(ctx context.Context, docID string) ([]paper.Chunk, error)
	// DeleteDocument removes the document and its chunks.
	DeleteDocument(ctx context.Context, docID string) error
	Close() error
}

// DocumentInfo is a listing entry.
type DocumentInfo struct {
	DocID      string `json:"doc_id"`
	ArxivID    string `json:"arxiv_id"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
	HasSummary bool   `json:"has_summary"`
}

// Sanitize strips NUL bytes and control characters other than newline,
// carriage return and tab, which text columns reject or mangle.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// CheckChunks validates chunks before they replace the set stored for docID.
func CheckChunks(docID string, chunks []paper.Chunk) error {
	for _, c := range chunks {
		if c.DocID != docID {
			return errors.New("store: chunk belongs to document " + c.DocID + ", not " + docID)
		}
		if strings.TrimSpace(c.Content) == "" {
			return errors.New("store: empty chunk content")
		}
		if c.Section == "" {
			return errors.New("store: chunk without section")
		}
	}
	return nil
}
