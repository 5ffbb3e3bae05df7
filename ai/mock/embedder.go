package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"unicode"
)

const (
	// DefaultModelID is the identity reported by a default MockEmbedder.
	DefaultModelID = "mock-bow"
	// DefaultDim is the vector length of a default MockEmbedder.
	DefaultDim = 64
)

// MockEmbedder is a test double for ai.Model.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// ID is returned by ModelID.
	ID string

	// Dim is the vector length of default embeddings and the value
	// returned by Dimension.
	Dim int

	callCount atomic.Int64
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{ID: DefaultModelID, Dim: DefaultDim}
}

// NewMockEmbedderWithID creates a default mock embedder reporting a custom identity.
func NewMockEmbedderWithID(id string) *MockEmbedder {
	m := NewMockEmbedder()
	m.ID = id
	return m
}

// ModelID returns the configured identity.
func (m *MockEmbedder) ModelID() string {
	return m.ID
}

// Dimension returns the configured vector length.
func (m *MockEmbedder) Dimension() int {
	return m.Dim
}

// EmbedText generates a deterministic bag-of-words embedding.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return generateDeterministicVector(text, m.Dim), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = generateDeterministicVector(text, m.Dim)
	}
	return embeddings, nil
}

// CallCount returns the number of times any embed method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and any injected behavior.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// generateDeterministicVector hashes each word of text into a bucket and
// returns the unit-length bucket histogram. Text without words maps to a
// fixed unit vector so every input has a valid embedding.
func generateDeterministicVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	if dim == 0 {
		return vector
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vector[h.Sum32()%uint32(dim)]++
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		vector[0] = 1
		return vector
	}
	norm := float32(1 / math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}
