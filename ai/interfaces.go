package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error wrapping core.ErrEmbeddingProvider on upstream failure.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of produced vectors. It must match
	// the vector index configuration; a mismatch fails index initialization.
	Dimension() int
}

// Summarizer produces a short description of document content.
// Used by the fire-and-forget post-ingest summary job.
type Summarizer interface {
	// Summarize returns a brief summary of the given text.
	Summarize(ctx context.Context, text string) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Summarizer
// instances, ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Summarizer returns the summary generation service.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	Close() error
}
