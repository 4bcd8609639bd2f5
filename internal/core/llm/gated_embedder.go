package llm

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/davidolu-dev/shoplore/internal/core"
)

// MaxEmbedInputChars caps the text submitted to the embedding model. Longer
// input is truncated uniformly; the model rejects oversized requests anyway.
const MaxEmbedInputChars = 8000

// DefaultEmbedConcurrency bounds in-flight embedding requests process-wide
// to respect upstream rate limits.
const DefaultEmbedConcurrency = 5

// GatedEmbedder wraps any EmbeddingProvider with a bounded concurrency gate
// shared by every caller in the process. The gate is an explicit dependency
// constructed once at wiring time, never a hidden package-level singleton, so
// the concurrency budget is visible and testable.
type GatedEmbedder struct {
	provider core.EmbeddingProvider
	gate     *semaphore.Weighted
}

// NewGatedEmbedder wraps provider with a gate of the given width.
func NewGatedEmbedder(provider core.EmbeddingProvider, maxInFlight int64) *GatedEmbedder {
	if maxInFlight <= 0 {
		maxInFlight = DefaultEmbedConcurrency
	}
	return &GatedEmbedder{
		provider: provider,
		gate:     semaphore.NewWeighted(maxInFlight),
	}
}

func (g *GatedEmbedder) Dimensions() int { return g.provider.Dimensions() }

// EmbedText truncates the input, waits for a gate slot, and delegates to the
// underlying provider. Provider failures come back as EmbeddingError; retry
// policy, if any, belongs to the caller.
func (g *GatedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if len(text) > MaxEmbedInputChars {
		text = text[:MaxEmbedInputChars]
	}

	if err := g.gate.Acquire(ctx, 1); err != nil {
		return nil, &core.EmbeddingError{Err: err}
	}
	defer g.gate.Release(1)

	vec, err := g.provider.EmbedText(ctx, text)
	if err != nil {
		return nil, &core.EmbeddingError{Err: err}
	}
	return vec, nil
}

var _ core.EmbeddingProvider = (*GatedEmbedder)(nil)
