package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/davidolu-dev/shoplore/internal/core"
	"github.com/davidolu-dev/shoplore/internal/services"
)

// Shop identity comes from the gateway in front of this service; resolving
// it from a session is out of scope here.
const (
	headerShopID = "X-Shop-Id"
	headerUserID = "X-User-Id"
)

const maxUploadBytes = 52 << 20 // 52 MB

type DocumentHandler struct {
	docs *services.DocumentService
}

func NewDocumentHandler(docs *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// UploadDocument handles multipart file upload, storage, DB insert, and
// queueing the background ingestion job.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	shopID := r.Header.Get(headerShopID)
	if shopID == "" {
		http.Error(w, "missing "+headerShopID+" header", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Sanitize filename to prevent path traversal or invalid characters.
	cleanFilename := filepath.Base(header.Filename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "could not read file", http.StatusBadRequest)
		return
	}

	doc, err := h.docs.UploadAndIngest(r.Context(), shopID, r.Header.Get(headerUserID), cleanFilename, contentType, data)
	if err != nil {
		log.Printf("upload failed for shop %s: %v", shopID, err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

type ingestTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// IngestText handles the pasted-text path synchronously; the response
// carries the document in its final state.
func (h *DocumentHandler) IngestText(w http.ResponseWriter, r *http.Request) {
	shopID := r.Header.Get(headerShopID)
	if shopID == "" {
		http.Error(w, "missing "+headerShopID+" header", http.StatusBadRequest)
		return
	}

	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "pasted-text"
	}

	doc, result, err := h.docs.IngestRawText(r.Context(), shopID, r.Header.Get(headerUserID), req.Title, req.Text)
	if err != nil {
		var empty *core.EmptyContentError
		if errors.As(err, &empty) {
			http.Error(w, empty.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.Printf("text ingest failed for shop %s: %v", shopID, err)
		http.Error(w, "ingestion failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document":         doc,
		"chunks_created":   result.ChunksCreated,
		"vectors_uploaded": result.VectorsUploaded,
	})
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	shopID := r.Header.Get(headerShopID)
	if shopID == "" {
		http.Error(w, "missing "+headerShopID+" header", http.StatusBadRequest)
		return
	}

	documents, err := h.docs.ListByShop(r.Context(), shopID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) GetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	chunks, err := h.docs.GetChunks(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chunks)
}

// DeleteDocument removes the document from the relational store, the vector
// index and object storage.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.docs.Delete(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		log.Printf("delete document %s: %v", id, err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
