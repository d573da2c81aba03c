package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/paperchunk/internal/paper"
	"github.com/dgallion1/paperchunk/internal/store"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.log.Error("list documents failed", "error", err)
		jsonError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.store.GetDocument(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get document failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	if !queryBool(r, "embeddings") {
		doc.SummaryEmbedding = nil
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleListChunks returns the stored chunks of a document in order.
// Embeddings are omitted unless ?embeddings=true.
func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")
	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		s.log.Error("get document failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	chunks, err := s.store.Chunks(ctx, docID)
	if err != nil {
		s.log.Error("list chunks failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to list chunks", http.StatusInternalServerError)
		return
	}
	if !queryBool(r, "embeddings") {
		for i := range chunks {
			chunks[i].Embedding = nil
		}
	}
	if chunks == nil {
		chunks = []paper.Chunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "chunks": chunks})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	err := s.store.DeleteDocument(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("delete document failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	s.log.Info("document deleted", "doc_id", docID)
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
