package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Model is an Embedder with a stable identity. Two models with the same
// ModelID are expected to produce comparable vectors; an index built with
// one model can only be queried with a model of the same identity.
type Model interface {
	Embedder

	// ModelID returns the identifier the model was loaded by.
	ModelID() string

	// Dimension returns the length of the vectors the model produces,
	// or 0 when it is not known until the first embedding.
	Dimension() int
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding model.
	// The returned Model is safe for concurrent use.
	Embedder() Model

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
