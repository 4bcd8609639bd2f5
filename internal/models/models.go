package models

import (
	"time"
)

// Document lifecycle statuses. Transitions are forward-only:
// uploaded -> processing -> processed | failed.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Document represents one uploaded or pasted source document.
type Document struct {
	ID           string     `db:"id" json:"id"`
	ShopID       string     `db:"shop_id" json:"shop_id"`
	UploadedBy   string     `db:"uploaded_by" json:"uploaded_by"`
	FileName     string     `db:"file_name" json:"file_name"`
	ContentType  string     `db:"content_type" json:"content_type"`
	ByteSize     int64      `db:"byte_size" json:"byte_size"`
	StorageURL   string     `db:"storage_url" json:"storage_url"` // S3 URL or text:// locator
	Status       string     `db:"status" json:"status"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	TotalChunks  *int       `db:"total_chunks" json:"total_chunks,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// DocumentChunk represents one contiguous text segment of a document.
// Its ID doubles as the id of the corresponding point in the vector index,
// so a chunk row and its vector can always be cross-referenced.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"`
	Text       string    `db:"text" json:"text"`
	TokenCount int       `db:"token_count" json:"token_count"`
	StartChar  int       `db:"start_char" json:"start_char"`
	EndChar    int       `db:"end_char" json:"end_char"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
