package dataset

import (
	"context"
	"log/slog"

	"github.com/poiesic/qaindex/core"
)

// Normalizer loads and flattens dataset files, reporting progress through
// its logger.
type Normalizer struct {
	logger *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		if logger == nil {
			logger = slog.Default()
		}
		n.logger = logger
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "normalizer")
	return n
}

// NormalizeFile loads the dataset at path and flattens it into records.
// On failure it returns an empty, non-nil slice together with the error,
// leaving the caller to decide whether to continue.
func (n *Normalizer) NormalizeFile(ctx context.Context, path string) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return []core.Record{}, err
	}

	ds, err := Load(path)
	if err != nil {
		n.logger.Error("failed to load dataset", "path", path, "err", err)
		return []core.Record{}, err
	}

	for _, category := range ds {
		n.logger.Info("processing category", "category", category.Name, "chunks", len(category.Chunks))
	}

	records, err := Normalize(ds)
	if err != nil {
		n.logger.Error("failed to normalize dataset", "path", path, "err", err)
		return []core.Record{}, err
	}

	n.logger.Info("prepared items for indexing", "path", path, "count", len(records))
	return records, nil
}
