package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/poiesic/qaindex/ai"
	"github.com/poiesic/qaindex/core"
	"github.com/poiesic/qaindex/index"
)

// Searcher ranks the entries of an index against free-text queries.
// It never modifies the index and is safe for concurrent use.
type Searcher struct {
	idx          *index.Index
	model        ai.Model
	minScore     float32
	hasMinScore  bool
	keywordBoost float32
	logger       *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore drops results scoring below threshold.
// Default is no threshold.
func WithMinScore(threshold float32) Option {
	return func(s *Searcher) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("min score %v outside [-1, 1]", threshold)
		}
		s.minScore = threshold
		s.hasMinScore = true
		return nil
	}
}

// WithKeywordBoost adds boost to the score of every record whose question
// contains all significant words of the query. The threshold set by
// WithMinScore applies before the boost. Default is 0.
func WithKeywordBoost(boost float32) Option {
	return func(s *Searcher) error {
		if boost < 0 {
			return fmt.Errorf("keyword boost %v must not be negative", boost)
		}
		s.keywordBoost = boost
		return nil
	}
}

// NewSearcher creates a searcher over idx. The index may be nil or not yet
// queryable; FindSimilar reports core.ErrIndexNotLoaded in that case.
func NewSearcher(idx *index.Index, model ai.Model, opts ...Option) (*Searcher, error) {
	if model == nil {
		return nil, ErrModelRequired
	}

	s := &Searcher{
		idx:    idx,
		model:  model,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Index returns the index the searcher reads.
func (s *Searcher) Index() *index.Index {
	return s.idx
}

// FindSimilar returns up to limit entries most similar to text, best first.
func (s *Searcher) FindSimilar(ctx context.Context, text string, limit int) ([]*core.SearchResult, error) {
	return s.FindSimilarWithMonitor(ctx, text, limit, nil)
}

// FindSimilarWithMonitor is FindSimilar with callbacks at each stage of the search.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, text string, limit int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidLimit, limit)
	}
	if s.idx == nil || !s.idx.Queryable() {
		return nil, core.ErrIndexNotLoaded
	}
	if s.idx.ModelID() != s.model.ModelID() {
		return nil, fmt.Errorf("%w: index built with %q, querying with %q",
			core.ErrModelMismatch, s.idx.ModelID(), s.model.ModelID())
	}

	monitor.Start(text, limit)

	if s.idx.Len() == 0 {
		monitor.Finish(nil)
		return []*core.SearchResult{}, nil
	}

	query, err := s.encode(ctx, text)
	if err != nil {
		return nil, err
	}
	monitor.AfterEncoding(query)

	type candidate struct {
		pos   int
		score float32
	}

	entries := s.idx.Entries()
	candidates := make([]candidate, 0, len(entries))
	for i := range entries {
		score := cosine(query, entries[i].Vector)
		if s.hasMinScore && score < s.minScore {
			continue
		}
		candidates = append(candidates, candidate{pos: i, score: score})
	}
	monitor.AfterScoring(len(entries), len(candidates))

	results := make([]*core.SearchResult, len(candidates))
	for i, c := range candidates {
		record := entries[c.pos].Record
		results[i] = &core.SearchResult{
			PairID:     record.PairID,
			QueryText:  record.QueryText,
			AnswerText: record.AnswerText,
			Category:   record.Category,
			Metadata:   record.Metadata,
			Score:      c.score,
		}
		if s.keywordBoost > 0 && containsAllQueryWords(record.QueryText, text) {
			results[i].Score += s.keywordBoost
			monitor.KeywordHit(results[i])
		}
	}

	// Stable, so equal scores keep insertion order.
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "results", len(results), "entries", len(entries))
	return results, nil
}

func (s *Searcher) encode(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.model.EmbedText(ctx, text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("%w: query: %w", core.ErrEncoding, err)
	}

	if dim := s.idx.Dimension(); dim > 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			core.ErrModelMismatch, len(vector), dim)
	}

	var sumSquares float64
	for _, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: query vector contains non-finite values", core.ErrEncoding)
		}
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return nil, fmt.Errorf("%w: query vector is zero", core.ErrEncoding)
	}
	return vector, nil
}

// cosine returns the cosine similarity of a and b, accumulated in float64.
// Stored vectors are unit length but the query need not be.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
