package ingestion_engine

// IngestConfig tunes the pipeline.
//
// MaxTokens:    approximate token budget per chunk (e.g., 500).
// OverlapChars: character overlap between consecutive chunks (e.g., 50).
// BatchSize:    how many chunks to embed concurrently in one batch.
type IngestConfig struct {
	MaxTokens    int
	OverlapChars int
	BatchSize    int
}

func (c IngestConfig) withDefaults() IngestConfig {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.OverlapChars < 0 {
		c.OverlapChars = DefaultOverlapChars
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	return c
}

// ProcessDocumentJob identifies one document to push through the pipeline.
// Locator is an HTTP(S) URL (typically the S3 object URL) or a local path.
// CleanupLocal marks Locator as a temp file the pipeline must remove when it
// finishes, succeed or fail.
type ProcessDocumentJob struct {
	DocumentID   string
	Locator      string
	FileName     string
	ContentType  string
	CleanupLocal bool
}

// ProcessResult summarises one completed pipeline run.
type ProcessResult struct {
	DocumentID      string
	ChunksCreated   int
	VectorsUploaded int
}
