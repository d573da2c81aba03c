package paper

import (
	"path/filepath"
	"strings"
)

// AbstractLabel is the section label in effect before the first numbered header.
const AbstractLabel = "Abstract"

// Document is one ingested paper.
type Document struct {
	DocID            string    `json:"doc_id"`
	ArxivID          string    `json:"arxiv_id"` // e.g. 2005.11401v4
	Title            string    `json:"title"`
	Summary          string    `json:"document_summary"`
	SummaryEmbedding []float32 `json:"document_summary_embedding,omitempty"` // nil when absent
	ContentHash      string    `json:"content_hash,omitempty"`               // sha256 of the page text
}

// Chunk is one retrievable window of section text.
type Chunk struct {
	DocID      string    `json:"doc_id"`
	Seq        int       `json:"seq"` // position within the document
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Section    string    `json:"section"`
	Subsection string    `json:"subsection,omitempty"` // empty unless the section was subdivided
}

// Section is the text accumulated between two structural boundaries,
// together with the chunks that survived windowing and filtering.
type Section struct {
	Label      string  `json:"section"`
	Subsection string  `json:"subsection,omitempty"`
	Text       string  `json:"text"`
	Chunks     []Chunk `json:"chunks"`
}

// DocIDFromPath derives the document identifier from a source filename:
// the base name without its extension.
func DocIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FlattenChunks returns all chunks of the given sections in document order.
func FlattenChunks(sections []Section) []Chunk {
	var out []Chunk
	for _, s := range sections {
		out = append(out, s.Chunks...)
	}
	return out
}
