package ingestion_engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/davidolu-dev/shoplore/internal/core"
	"github.com/davidolu-dev/shoplore/internal/models"
)

// DocumentIngestor runs the ingestion pipeline for one document at a time:
// acquire bytes, extract text, chunk, embed, persist chunk rows, upsert
// vectors, promote status. It owns the in-memory job queue consumed by the
// background worker.
type DocumentIngestor struct {
	db       core.DbClient
	vectors  core.VectorStore
	embedder core.EmbeddingProvider
	cfg      IngestConfig
	jobs     chan ProcessDocumentJob
}

// NewDocumentIngestor constructs the ingestor with a bounded job queue (64).
func NewDocumentIngestor(db core.DbClient, vectors core.VectorStore, emb core.EmbeddingProvider, cfg IngestConfig) *DocumentIngestor {
	return &DocumentIngestor{
		db:       db,
		vectors:  vectors,
		embedder: emb,
		cfg:      cfg.withDefaults(),
		jobs:     make(chan ProcessDocumentJob, 64),
	}
}

// Start runs a single worker goroutine reading from the jobs channel.
func (i *DocumentIngestor) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-i.jobs:
				if _, err := i.ProcessDocument(ctx, job); err != nil {
					log.Printf("ingest %s failed: %v", job.DocumentID, err)
				}
			}
		}
	}()
}

// Enqueue schedules a job for ingestion. If the queue is full, this call
// blocks until space frees up.
func (i *DocumentIngestor) Enqueue(job ProcessDocumentJob) {
	i.jobs <- job
}

// ProcessDocument runs the full pipeline for one job. Every stage failure
// marks the document failed with the message recorded, then the error is
// returned so the caller's retry policy can act on it. Side effects across
// stages are not transactional: chunk rows are persisted before vectors are
// upserted and the status is promoted only after the upsert, so a document
// whose chunks exist but whose status never reached "processed" is the
// signature a reconciliation sweep should look for.
func (i *DocumentIngestor) ProcessDocument(ctx context.Context, job ProcessDocumentJob) (*ProcessResult, error) {
	// Temp-file cleanup is owned here, not by acquisition, and runs on both
	// the success and failure paths.
	if job.CleanupLocal && !strings.HasPrefix(job.Locator, "http://") && !strings.HasPrefix(job.Locator, "https://") {
		defer func() {
			if err := os.Remove(job.Locator); err != nil && !os.IsNotExist(err) {
				log.Printf("cleanup temp file %s: %v", job.Locator, err)
			}
		}()
	}

	doc, err := i.db.GetDocumentByID(ctx, job.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", job.DocumentID, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("document not found: %s", job.DocumentID)
	}

	if err := i.db.UpdateDocumentStatus(ctx, job.DocumentID, models.StatusProcessing); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	data, err := FetchFileContent(ctx, job.Locator)
	if err != nil {
		return nil, i.fail(ctx, job.DocumentID, err)
	}

	text, err := ExtractTextFromFile(data, job.ContentType, job.FileName)
	if err != nil {
		return nil, i.fail(ctx, job.DocumentID, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, i.fail(ctx, job.DocumentID, &core.EmptyContentError{Reason: "no text could be extracted"})
	}

	return i.ingestText(ctx, doc, text)
}

// ProcessText runs the pipeline on already-extracted text, the synchronous
// pasted-text path. Acquisition and extraction are skipped; everything from
// chunking onwards is identical to the file path.
func (i *DocumentIngestor) ProcessText(ctx context.Context, doc *models.Document, text string) (*ProcessResult, error) {
	if err := i.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusProcessing); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, i.fail(ctx, doc.ID, &core.EmptyContentError{Reason: "no text could be extracted"})
	}
	return i.ingestText(ctx, doc, text)
}

// ingestText is the shared tail of both pipelines: chunk, embed, persist,
// upsert, promote.
func (i *DocumentIngestor) ingestText(ctx context.Context, doc *models.Document, text string) (*ProcessResult, error) {
	chunks := ChunkText(text, i.cfg.MaxTokens, i.cfg.OverlapChars)
	if len(chunks) == 0 {
		return nil, i.fail(ctx, doc.ID, &core.EmptyContentError{Reason: "No valid chunks created."})
	}

	rows, points, err := i.embedChunks(ctx, doc, chunks)
	if err != nil {
		return nil, i.fail(ctx, doc.ID, err)
	}

	// Saga ordering: chunk rows first, vectors second, promotion last.
	if err := i.db.InsertDocumentChunks(ctx, rows); err != nil {
		return nil, i.fail(ctx, doc.ID, fmt.Errorf("insert chunks: %w", err))
	}
	if err := i.vectors.UpsertVectors(ctx, points); err != nil {
		return nil, i.fail(ctx, doc.ID, err)
	}
	if err := i.db.MarkDocumentProcessed(ctx, doc.ID, len(chunks), time.Now()); err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}

	return &ProcessResult{
		DocumentID:      doc.ID,
		ChunksCreated:   len(rows),
		VectorsUploaded: len(points),
	}, nil
}

// embedChunks embeds all chunks in bounded-concurrency batches. Results stay
// index-aligned with the chunk order, so chunk indices are deterministic no
// matter how the embedding calls interleave.
func (i *DocumentIngestor) embedChunks(ctx context.Context, doc *models.Document, chunks []TextChunk) ([]models.DocumentChunk, []core.VectorPoint, error) {
	now := time.Now()
	rows := make([]models.DocumentChunk, len(chunks))
	points := make([]core.VectorPoint, len(chunks))
	vecs := make([][]float32, len(chunks))

	for start := 0; start < len(chunks); start += i.cfg.BatchSize {
		end := start + i.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g, gctx := errgroup.WithContext(ctx)
		for idx := start; idx < end; idx++ {
			g.Go(func() error {
				vec, err := i.embedder.EmbedText(gctx, chunks[idx].Text)
				if err != nil {
					return err
				}
				vecs[idx] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	}

	for idx, ch := range chunks {
		chunkID := uuid.NewString()
		rows[idx] = models.DocumentChunk{
			ID:         chunkID,
			DocumentID: doc.ID,
			ChunkIndex: idx,
			Text:       ch.Text,
			TokenCount: ch.TokenCount,
			StartChar:  ch.StartChar,
			EndChar:    ch.EndChar,
			CreatedAt:  now,
		}
		points[idx] = core.VectorPoint{
			ID:     chunkID,
			Vector: vecs[idx],
			Payload: core.VectorPayload{
				DocumentID:  doc.ID,
				ChunkIndex:  idx,
				Text:        ch.Text,
				TokenCount:  ch.TokenCount,
				FileName:    doc.FileName,
				ContentType: doc.ContentType,
				CreatedAt:   now,
				UploadedBy:  doc.UploadedBy,
			},
		}
	}

	return rows, points, nil
}

// fail records the failure on the document and passes the original error
// through. The status write is best-effort; the pipeline error wins.
func (i *DocumentIngestor) fail(ctx context.Context, documentID string, cause error) error {
	if err := i.db.MarkDocumentFailed(ctx, documentID, cause.Error()); err != nil {
		log.Printf("mark document %s failed: %v", documentID, err)
	}
	return cause
}
