package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/qaindex/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// noAuthToken is sent to local OpenAI-compatible services that don't require authentication.
const noAuthToken = "none"

// Embedder implements ai.Model using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder  embeddings.Embedder
	modelID   string
	dimension atomic.Int64
	logger    *slog.Logger
}

var _ ai.Model = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	token := config.APIKey
	if token == "" {
		token = noAuthToken
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	e := &Embedder{
		embedder: embedder,
		modelID:  config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}
	e.dimension.Store(int64(config.Dimension))
	return e, nil
}

// NewEmbedder creates a new embedding model using the provided configuration.
//
// Returns ai.Model interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Model, error) {
	return newEmbedder(config)
}

// ModelID returns the configured embedding model name.
func (e *Embedder) ModelID() string {
	return e.modelID
}

// Dimension returns the configured vector length, or the length of the
// first vector returned by the service when none was configured.
func (e *Embedder) Dimension() int {
	return int(e.dimension.Load())
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}

	if len(vectors) > 0 && e.dimension.CompareAndSwap(0, int64(len(vectors[0]))) {
		e.logger.Debug("learned embedding dimension", "dimension", len(vectors[0]))
	}
	return vectors, nil
}
