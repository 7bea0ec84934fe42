package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/diomir0/idlearn/internal/document"
	"github.com/diomir0/idlearn/internal/outline"
	"github.com/diomir0/idlearn/internal/parser"
	"github.com/go-chi/chi/v5"
)

// handleUploadDocument accepts a file upload, parses it into spans, extracts
// the outline and stores the result for later region selection. Parsing and
// outline extraction are synchronous; only generation is queued.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	p, err := parser.ForFile(filename, s.cfg.PDFFallbackPdftotext)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	title, spans, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "failed to parse document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if t := r.FormValue("title"); t != "" {
		title = t
	}

	doc := &document.Document{
		ID:        document.ContentID(spans),
		Title:     title,
		Filename:  filename,
		Spans:     spans,
		CreatedAt: time.Now(),
	}

	root, err := outline.Extract(doc)
	if err != nil {
		if errors.Is(err, outline.ErrNoSpans) {
			jsonError(w, "document contains no extractable text", http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "failed to extract outline: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.docs.Put(&document.Stored{Doc: doc, Outline: root})
	s.log.Info("document stored", "doc_id", doc.ID, "filename", filename, "spans", len(spans))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":  doc.ID,
		"title":   doc.Title,
		"spans":   len(spans),
		"outline": root,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	stored := s.docs.List()
	docs := make([]map[string]any, 0, len(stored))
	for _, d := range stored {
		docs = append(docs, map[string]any{
			"doc_id":     d.Doc.ID,
			"title":      d.Doc.Title,
			"filename":   d.Doc.Filename,
			"created_at": d.Doc.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	d := s.docs.Get(docID)
	if d == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":     d.Doc.ID,
		"title":      d.Doc.Title,
		"filename":   d.Doc.Filename,
		"created_at": d.Doc.CreatedAt,
		"outline":    d.Outline,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if !s.docs.Delete(docID) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": docID})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
