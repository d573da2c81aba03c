package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dgallion1/paperchunk/internal/paper"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id                     TEXT PRIMARY KEY,
	arxiv_id                   TEXT NOT NULL DEFAULT '',
	title                      TEXT NOT NULL DEFAULT '',
	document_summary           TEXT NOT NULL DEFAULT '',
	document_summary_embedding TEXT,
	content_hash               TEXT NOT NULL DEFAULT '',
	updated_at                 TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	doc_id     TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	content    TEXT NOT NULL,
	embedding  TEXT,
	section    TEXT NOT NULL,
	subsection TEXT
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id, seq);
`

// Connection pragmas, applied to every pooled connection.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(10000)",
	"synchronous(NORMAL)",
}

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// opens a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) UpsertDocument(ctx context.Context, doc paper.Document) error {
	if doc.DocID == "" {
		return errors.New("store: empty doc id")
	}
	emb, err := encodeVector(doc.SummaryEmbedding)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, arxiv_id, title, document_summary, document_summary_embedding, content_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			arxiv_id = excluded.arxiv_id,
			title = excluded.title,
			document_summary = excluded.document_summary,
			document_summary_embedding = excluded.document_summary_embedding,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		doc.DocID, doc.ArxivID, Sanitize(doc.Title), Sanitize(doc.Summary), emb, doc.ContentHash,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.DocID, err)
	}
	return nil
}

func (s *SQLite) ReplaceChunks(ctx context.Context, docID string, chunks []paper.Chunk) error {
	if err := CheckChunks(docID, chunks); err != nil {
		return err
	}
	return s.runTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, docID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, doc_id, seq, content, embedding, section, subsection)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			emb, err := encodeVector(c.Embedding)
			if err != nil {
				return err
			}
			var sub sql.NullString
			if c.Subsection != "" {
				sub = sql.NullString{String: Sanitize(c.Subsection), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, uuid.NewString(), docID, c.Seq,
				Sanitize(c.Content), emb, Sanitize(c.Section), sub); err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.Seq, err)
			}
		}
		return nil
	})
}

func (s *SQLite) GetDocument(ctx context.Context, docID string) (*paper.Document, error) {
	var doc paper.Document
	var emb sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, arxiv_id, title, document_summary, document_summary_embedding, content_hash
		FROM documents WHERE doc_id = ?`, docID).
		Scan(&doc.DocID, &doc.ArxivID, &doc.Title, &doc.Summary, &emb, &doc.ContentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", docID, err)
	}
	if doc.SummaryEmbedding, err = decodeVector(emb); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *SQLite) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.doc_id, d.arxiv_id, d.title, d.document_summary != '',
		       (SELECT COUNT(*) FROM chunks c WHERE c.doc_id = d.doc_id)
		FROM documents d ORDER BY d.doc_id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []DocumentInfo{}
	for rows.Next() {
		var info DocumentInfo
		if err := rows.Scan(&info.DocID, &info.ArxivID, &info.Title, &info.HasSummary, &info.ChunkCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLite) Chunks(ctx context.Context, docID string) ([]paper.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, content, embedding, section, subsection
		FROM chunks WHERE doc_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("list chunks %s: %w", docID, err)
	}
	defer rows.Close()

	var out []paper.Chunk
	for rows.Next() {
		c := paper.Chunk{DocID: docID}
		var emb, sub sql.NullString
		if err := rows.Scan(&c.Seq, &c.Content, &emb, &c.Section, &sub); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if c.Embedding, err = decodeVector(emb); err != nil {
			return nil, err
		}
		c.Subsection = sub.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) DeleteDocument(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// runTx runs fn in a transaction, retrying when the database is busy.
func (s *SQLite) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return retry.Do(
		func() error {
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin tx: %w", err)
			}
			if err := fn(tx); err != nil {
				_ = tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBusy),
	)
}

// isBusy reports whether err carries SQLITE_BUSY or SQLITE_LOCKED,
// including their extended codes.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func encodeVector(v []float32) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode embedding: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeVector(s sql.NullString) ([]float32, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return v, nil
}
