package services

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidolu-dev/shoplore/internal/core"
	"github.com/davidolu-dev/shoplore/internal/core/ingestion_engine"
	"github.com/davidolu-dev/shoplore/internal/models"
)

// DocumentService coordinates the upload, deletion and query surfaces around
// the ingestion pipeline. The relational rows and the vector index are only
// eventually consistent; Delete reconciles them explicitly.
type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	vectors  core.VectorStore
	embedder core.EmbeddingProvider
	ingestor *ingestion_engine.DocumentIngestor
	bucket   string
}

func NewDocumentService(
	db core.DbClient,
	storage core.ObjectClient,
	vectors core.VectorStore,
	embedder core.EmbeddingProvider,
	ingestor *ingestion_engine.DocumentIngestor,
	bucket string,
) *DocumentService {
	return &DocumentService{
		db:       db,
		storage:  storage,
		vectors:  vectors,
		embedder: embedder,
		ingestor: ingestor,
		bucket:   bucket,
	}
}

// UploadAndIngest stores the raw bytes in object storage, creates the
// document row, and queues a background ingestion job pointing at the
// uploaded object's URL.
func (s *DocumentService) UploadAndIngest(ctx context.Context, shopID, uploadedBy, filename, contentType string, data []byte) (*models.Document, error) {
	docID := uuid.NewString()
	key := s.objectKey(shopID, docID, filename)

	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &models.Document{
		ID:          docID,
		ShopID:      shopID,
		UploadedBy:  uploadedBy,
		FileName:    filename,
		ContentType: contentType,
		ByteSize:    int64(len(data)),
		StorageURL:  url,
		Status:      models.StatusUploaded,
		CreatedAt:   time.Now(),
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		// Roll the orphaned object back so storage does not accumulate
		// unreferenced uploads.
		if delErr := s.storage.DeleteFile(ctx, s.bucket, key); delErr != nil {
			log.Printf("cleanup orphaned upload %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.ingestor.Enqueue(ingestion_engine.ProcessDocumentJob{
		DocumentID:  doc.ID,
		Locator:     url,
		FileName:    filename,
		ContentType: contentType,
	})

	return doc, nil
}

// IngestRawText handles the pasted-text path: the document is created with a
// virtual locator and processed synchronously, so the caller sees the final
// status in the response.
func (s *DocumentService) IngestRawText(ctx context.Context, shopID, uploadedBy, title, text string) (*models.Document, *ingestion_engine.ProcessResult, error) {
	docID := uuid.NewString()

	doc := &models.Document{
		ID:          docID,
		ShopID:      shopID,
		UploadedBy:  uploadedBy,
		FileName:    title,
		ContentType: ingestion_engine.MimeText,
		ByteSize:    int64(len(text)),
		StorageURL:  "text://" + docID,
		Status:      models.StatusUploaded,
		CreatedAt:   time.Now(),
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("create document: %w", err)
	}

	result, err := s.ingestor.ProcessText(ctx, doc, text)
	if err != nil {
		return doc, nil, err
	}
	return doc, result, nil
}

// Get returns one document, or nil when it does not exist.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.db.GetDocumentByID(ctx, id)
}

func (s *DocumentService) ListByShop(ctx context.Context, shopID string) ([]models.Document, error) {
	return s.db.ListDocumentsByShop(ctx, shopID)
}

func (s *DocumentService) GetChunks(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	return s.db.GetChunksByDocument(ctx, documentID)
}

// Delete removes a document everywhere it lives: the vector index first (by
// documentId filter), then the relational rows (chunks cascade), then the
// stored object. Vector deletion goes first so a search can never surface a
// hit whose relational backing is already gone.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", id)
	}

	if err := s.vectors.DeleteDocumentVectors(ctx, id); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(ctx, id); err != nil {
		return err
	}

	if key, ok := s.storageKey(doc.StorageURL); ok {
		if err := s.storage.DeleteFile(ctx, s.bucket, key); err != nil {
			// The object is unreachable from the application already; log
			// instead of failing the delete.
			log.Printf("delete stored object for %s: %v", id, err)
		}
	}
	return nil
}

// SearchChunks embeds the query through the same gated embedder the pipeline
// uses and runs a similarity search, optionally scoped to one document.
func (s *DocumentService) SearchChunks(ctx context.Context, query string, limit int, documentID string) ([]core.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.vectors.SearchSimilar(ctx, vec, limit, documentID)
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(shopID, docID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("shops", shopID, "documents", docID, filename)
}

// storageKey extracts the object key from a stored S3 URL. Virtual text://
// locators have no object behind them.
func (s *DocumentService) storageKey(storageURL string) (string, bool) {
	if strings.HasPrefix(storageURL, "text://") {
		return "", false
	}
	hostPath := strings.SplitN(strings.TrimPrefix(storageURL, "https://"), "/", 2)
	if len(hostPath) != 2 || hostPath[1] == "" {
		return "", false
	}
	return hostPath[1], true
}
