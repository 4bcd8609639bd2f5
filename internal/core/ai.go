package core

import "context"

// EmbeddingProvider turns text into a fixed-length vector.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the vector length the provider produces; the vector
	// collection must be configured to match.
	Dimensions() int
}
