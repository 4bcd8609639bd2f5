package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/davidolu-dev/shoplore/internal/services"
)

type SearchHandler struct {
	docs *services.DocumentService
}

func NewSearchHandler(docs *services.DocumentService) *SearchHandler {
	return &SearchHandler{docs: docs}
}

type searchRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
	DocumentID string `json:"document_id"`
}

// Search embeds the query text and returns the nearest chunks from the
// vector index, optionally scoped to a single document.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	hits, err := h.docs.SearchChunks(r.Context(), req.Query, req.Limit, req.DocumentID)
	if err != nil {
		log.Printf("search failed: %v", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": hits,
	})
}
