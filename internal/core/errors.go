package core

import "fmt"

// AcquisitionError reports a failure to read a document's raw bytes.
// Remote distinguishes a failed HTTP fetch from a local filesystem read
// so callers can decide whether a retry makes sense.
type AcquisitionError struct {
	Locator string
	Remote  bool
	Err     error
}

func (e *AcquisitionError) Error() string {
	if e.Remote {
		return fmt.Sprintf("fetch %q: %v", e.Locator, e.Err)
	}
	return fmt.Sprintf("read %q: %v", e.Locator, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ContentTypeMismatchError means the magic bytes of an upload disagree with
// its declared content type. Treated as a hard validation failure so a
// disguised upload is never parsed under a false extension.
type ContentTypeMismatchError struct {
	Declared string
	Detected string
}

func (e *ContentTypeMismatchError) Error() string {
	return fmt.Sprintf("declared content type %q does not match detected type %q", e.Declared, e.Detected)
}

// UnsupportedFormatError means no extractor is registered for a content type.
type UnsupportedFormatError struct {
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.ContentType)
}

// EmptyContentError means a stage produced no usable text or chunks.
type EmptyContentError struct {
	Reason string
}

func (e *EmptyContentError) Error() string { return e.Reason }

// EmbeddingError wraps a failure from the embedding provider.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding failed: %v", e.Err) }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// VectorStoreError wraps a failure from the vector index. Batch operations
// carry no partial-success semantics; the whole call failed.
type VectorStoreError struct {
	Op  string
	Err error
}

func (e *VectorStoreError) Error() string { return fmt.Sprintf("vector store %s: %v", e.Op, e.Err) }

func (e *VectorStoreError) Unwrap() error { return e.Err }
