package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidolu-dev/shoplore/internal/core"
	"github.com/davidolu-dev/shoplore/internal/core/ingestion_engine"
	"github.com/davidolu-dev/shoplore/internal/models"
	"github.com/davidolu-dev/shoplore/internal/services"
)

type stubDB struct {
	mu        sync.Mutex
	documents map[string]*models.Document
	chunks    map[string][]models.DocumentChunk
}

func newStubDB() *stubDB {
	return &stubDB{
		documents: make(map[string]*models.Document),
		chunks:    make(map[string][]models.DocumentChunk),
	}
}

func (s *stubDB) CreateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *stubDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (s *stubDB) ListDocumentsByShop(_ context.Context, shopID string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Document{}
	for _, doc := range s.documents {
		if doc.ShopID == shopID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (s *stubDB) UpdateDocumentStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.documents[id]; ok {
		doc.Status = status
	}
	return nil
}

func (s *stubDB) MarkDocumentProcessed(_ context.Context, id string, totalChunks int, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.documents[id]; ok {
		doc.Status = models.StatusProcessed
		doc.TotalChunks = &totalChunks
		doc.ProcessedAt = &processedAt
	}
	return nil
}

func (s *stubDB) MarkDocumentFailed(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.documents[id]; ok {
		doc.Status = models.StatusFailed
		doc.ErrorMessage = &message
	}
	return nil
}

func (s *stubDB) InsertDocumentChunks(_ context.Context, chunks []models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
	}
	return nil
}

func (s *stubDB) GetChunksByDocument(_ context.Context, documentID string) ([]models.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DocumentChunk{}, s.chunks[documentID]...), nil
}

func (s *stubDB) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return errors.New("document not found")
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

func (s *stubDB) Close() error { return nil }

type stubStorage struct{}

func (stubStorage) UploadFile(_ context.Context, bucket, key string, _ []byte, _ string) (string, error) {
	return "https://" + bucket + ".s3.amazonaws.com/" + key, nil
}
func (stubStorage) DeleteFile(context.Context, string, string) error { return nil }
func (stubStorage) GetFile(context.Context, string, string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (stubStorage) GetObjectReader(context.Context, string, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type stubVectors struct{}

func (stubVectors) InitCollection(context.Context) error                      { return nil }
func (stubVectors) UpsertVectors(context.Context, []core.VectorPoint) error   { return nil }
func (stubVectors) DeleteDocumentVectors(context.Context, string) error       { return nil }
func (stubVectors) Close() error                                              { return nil }
func (stubVectors) SearchSimilar(_ context.Context, _ []float32, _ int, _ string) ([]core.SearchHit, error) {
	return []core.SearchHit{{ID: "hit-1", Score: 0.87, Payload: core.VectorPayload{Text: "a chunk"}}}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Dimensions() int { return 4 }
func (stubEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return []float32{1, 2, 3, 4}, nil
}

func newTestRouter(db *stubDB) http.Handler {
	ing := ingestion_engine.NewDocumentIngestor(db, stubVectors{}, stubEmbedder{}, ingestion_engine.IngestConfig{})
	svc := services.NewDocumentService(db, stubStorage{}, stubVectors{}, stubEmbedder{}, ing, "test-bucket")

	docHandler := NewDocumentHandler(svc)
	searchHandler := NewSearchHandler(svc)

	r := chi.NewRouter()
	r.Post("/api/documents/upload", docHandler.UploadDocument)
	r.Post("/api/documents/text", docHandler.IngestText)
	r.Get("/api/documents", docHandler.ListDocuments)
	r.Get("/api/documents/{id}", docHandler.GetDocument)
	r.Get("/api/documents/{id}/chunks", docHandler.GetDocumentChunks)
	r.Delete("/api/documents/{id}", docHandler.DeleteDocument)
	r.Post("/api/search", searchHandler.Search)
	return r
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	db := newStubDB()
	router := newTestRouter(db)

	body, contentType := multipartBody(t, "file", "notes.txt", "file content")
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Shop-Id", "shop-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var doc models.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.Equal(t, "shop-1", doc.ShopID)
	assert.Equal(t, "notes.txt", doc.FileName)
	assert.Equal(t, models.StatusUploaded, doc.Status)
}

func TestUploadDocument_MissingShopHeader(t *testing.T) {
	router := newTestRouter(newStubDB())

	body, contentType := multipartBody(t, "file", "notes.txt", "content")
	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadDocument_MissingFile(t *testing.T) {
	router := newTestRouter(newStubDB())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("other", "value"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Shop-Id", "shop-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestText(t *testing.T) {
	db := newStubDB()
	router := newTestRouter(db)

	payload := map[string]string{
		"title": "returns policy",
		"text":  strings.Repeat("All returns are accepted within thirty days of delivery. ", 20),
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shop-Id", "shop-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Document      models.Document `json:"document"`
		ChunksCreated int             `json:"chunks_created"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Greater(t, resp.ChunksCreated, 0)
}

func TestIngestText_EmptyText(t *testing.T) {
	router := newTestRouter(newStubDB())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/text", strings.NewReader(`{"title": "x", "text": "   "}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shop-Id", "shop-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetDocument_NotFound(t *testing.T) {
	router := newTestRouter(newStubDB())

	req := httptest.NewRequest(http.MethodGet, "/api/documents/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDocuments(t *testing.T) {
	db := newStubDB()
	require.NoError(t, db.CreateDocument(context.Background(), &models.Document{
		ID: "d1", ShopID: "shop-1", FileName: "a.txt", Status: models.StatusProcessed,
	}))
	router := newTestRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("X-Shop-Id", "shop-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var docs []models.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].FileName)
}

func TestDeleteDocument(t *testing.T) {
	db := newStubDB()
	require.NoError(t, db.CreateDocument(context.Background(), &models.Document{
		ID: "d1", ShopID: "shop-1", StorageURL: "text://d1",
	}))
	router := newTestRouter(db)

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/d1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/documents/d1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	router := newTestRouter(newStubDB())

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query": "shipping"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query   string           `json:"query"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "shipping", resp.Query)
	assert.Len(t, resp.Results, 1)
}

func TestSearch_EmptyQuery(t *testing.T) {
	router := newTestRouter(newStubDB())

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query": "  "}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
