package core

import (
	"context"
	"io"
	"time"

	"github.com/davidolu-dev/shoplore/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB
// and tests can substitute an in-memory fake.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByShop(ctx context.Context, shopID string) ([]models.Document, error)

	// Status mutations are atomic single-row updates; the Mark* variants set
	// their auxiliary fields in the same statement as the status change.
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	MarkDocumentProcessed(ctx context.Context, id string, totalChunks int, processedAt time.Time) error
	MarkDocumentFailed(ctx context.Context, id string, message string) error

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)

	// DeleteDocument removes the document row; chunk rows go with it via
	// the cascading foreign key.
	DeleteDocument(ctx context.Context, id string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// VectorPayload is the metadata stored alongside each vector, keyed by the
// chunk id. DocumentID is the filter key for cascading deletes.
type VectorPayload struct {
	DocumentID  string
	ChunkIndex  int
	Text        string
	TokenCount  int
	FileName    string
	ContentType string
	CreatedAt   time.Time
	UploadedBy  string
}

// VectorPoint is one (id, vector, payload) triple bound for the index.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload VectorPayload
}

// SearchHit is one nearest-neighbour result with its payload attached.
type SearchHit struct {
	ID      string
	Score   float32
	Payload VectorPayload
}

// VectorStore manages a single logical collection in a vector index with
// fixed dimensionality and cosine distance.
type VectorStore interface {
	// InitCollection is idempotent: it creates the collection if absent and
	// destructively recreates it if the stored dimensionality drifted from
	// the configured one.
	InitCollection(ctx context.Context) error

	// UpsertVectors writes all points in one call, waiting for completion so
	// the caller observes a consistent view on return. Empty input is a no-op.
	UpsertVectors(ctx context.Context, points []VectorPoint) error

	// SearchSimilar returns the nearest neighbours by cosine similarity.
	// A non-empty documentID restricts results to that document's vectors.
	SearchSimilar(ctx context.Context, vector []float32, limit int, documentID string) ([]SearchHit, error)

	// DeleteDocumentVectors removes every vector whose payload documentId
	// matches, used for cascading cleanup when a document is deleted.
	DeleteDocumentVectors(ctx context.Context, documentID string) error

	Close() error
}
