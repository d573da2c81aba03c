package pathstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/paperchunk/internal/paper"
	"github.com/dgallion1/paperchunk/internal/store"
)

// Key layout:
//
//	papers/{doc}/meta          paper.Document
//	papers/{doc}/chunks/{seq}  paper.Chunk
//	paper_index/{doc}          store.DocumentInfo
//
// Path segments may not contain dots, so doc ids are escaped with segment.
// The escape is reversible: distinct ids never share a key.
const (
	papersPrefix = "papers"
	indexPrefix  = "paper_index"
	source       = "paperchunk"
)

// Store implements store.Store on top of pathstore.
type Store struct {
	client *Client
}

var _ store.Store = (*Store)(nil)

func NewStore(c *Client) *Store { return &Store{client: c} }

// segment keeps ASCII letters, digits and '-' and writes every other byte
// as '_' plus two lowercase hex digits, so "2005.11401v4" becomes
// "2005_2e11401v4" and "2005_11401v4" becomes "2005_5f11401v4".
func segment(docID string) string {
	const hexDigits = "0123456789abcdef"
	var b strings.Builder
	b.Grow(len(docID))
	for i := 0; i < len(docID); i++ {
		c := docID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

func docKey(docID string) string   { return papersPrefix + "/" + segment(docID) }
func metaKey(docID string) string  { return docKey(docID) + "/meta" }
func chunkDir(docID string) string { return docKey(docID) + "/chunks" }
func indexKey(docID string) string { return indexPrefix + "/" + segment(docID) }

func (s *Store) UpsertDocument(ctx context.Context, doc paper.Document) error {
	if doc.DocID == "" {
		return errors.New("store: empty doc id")
	}
	doc.Title = store.Sanitize(doc.Title)
	doc.Summary = store.Sanitize(doc.Summary)
	if err := s.client.PutNode(ctx, metaKey(doc.DocID), NodeRequest{Value: doc, Source: source}); err != nil {
		return err
	}

	info, err := s.index(ctx, doc.DocID)
	if err != nil {
		return err
	}
	if info == nil {
		info = &store.DocumentInfo{}
	}
	info.DocID = doc.DocID
	info.ArxivID = doc.ArxivID
	info.Title = doc.Title
	info.HasSummary = doc.Summary != ""
	return s.client.PutNode(ctx, indexKey(doc.DocID), NodeRequest{Value: info, Source: source})
}

// ReplaceChunks removes the chunk subtree and writes chunks. Unlike the
// SQLite store this is not atomic: a failure midway leaves a partial set.
func (s *Store) ReplaceChunks(ctx context.Context, docID string, chunks []paper.Chunk) error {
	info, err := s.index(ctx, docID)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("replace chunks %s: %w", docID, store.ErrNotFound)
	}
	if err := store.CheckChunks(docID, chunks); err != nil {
		return err
	}

	if err := s.client.DeleteNode(ctx, chunkDir(docID), true); err != nil {
		return err
	}
	for _, c := range chunks {
		c.Content = store.Sanitize(c.Content)
		c.Section = store.Sanitize(c.Section)
		c.Subsection = store.Sanitize(c.Subsection)
		key := fmt.Sprintf("%s/%06d", chunkDir(docID), c.Seq)
		if err := s.client.PutNode(ctx, key, NodeRequest{Value: c, Source: source}); err != nil {
			return fmt.Errorf("chunk %d: %w", c.Seq, err)
		}
	}

	info.ChunkCount = len(chunks)
	return s.client.PutNode(ctx, indexKey(docID), NodeRequest{Value: info, Source: source})
}

func (s *Store) GetDocument(ctx context.Context, docID string) (*paper.Document, error) {
	node, err := s.client.GetNode(ctx, metaKey(docID))
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, store.ErrNotFound
	}
	var doc paper.Document
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]store.DocumentInfo, error) {
	nodes, err := s.client.ListChildren(ctx, indexPrefix, 0)
	if err != nil {
		return nil, err
	}
	out := make([]store.DocumentInfo, 0, len(nodes))
	for _, n := range nodes {
		var info store.DocumentInfo
		if err := n.Decode(&info); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b store.DocumentInfo) int { return strings.Compare(a.DocID, b.DocID) })
	return out, nil
}

func (s *Store) Chunks(ctx context.Context, docID string) ([]paper.Chunk, error) {
	nodes, err := s.client.ListChildren(ctx, chunkDir(docID), 0)
	if err != nil {
		return nil, err
	}
	out := make([]paper.Chunk, 0, len(nodes))
	for _, n := range nodes {
		var c paper.Chunk
		if err := n.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b paper.Chunk) int { return a.Seq - b.Seq })
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	node, err := s.client.GetNode(ctx, metaKey(docID))
	if err != nil {
		return err
	}
	if node == nil {
		return store.ErrNotFound
	}
	if err := s.client.DeleteNode(ctx, docKey(docID), true); err != nil {
		return err
	}
	return s.client.DeleteNode(ctx, indexKey(docID), false)
}

func (s *Store) Close() error {
	s.client.Close()
	return nil
}

func (s *Store) index(ctx context.Context, docID string) (*store.DocumentInfo, error) {
	node, err := s.client.GetNode(ctx, indexKey(docID))
	if err != nil || node == nil {
		return nil, err
	}
	var info store.DocumentInfo
	if err := node.Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
