package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poiesic/qaindex/ai/mock"
	"github.com/poiesic/qaindex/core"
	"github.com/poiesic/qaindex/index"
	"github.com/poiesic/qaindex/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []core.Record{
	{PairID: "c1_q0", QueryText: "What is the capital of France?", AnswerText: "Paris is the capital of France.", Category: "geography"},
	{PairID: "c2_q0", QueryText: "How do volcanoes erupt?", AnswerText: "Magma rises through the crust.", Category: "science"},
	{PairID: "c3_q0", QueryText: "Who wrote Hamlet?", AnswerText: "William Shakespeare.", Category: "literature"},
	{PairID: "c4_q0", QueryText: "Tell me about hologram chatbot", AnswerText: "A chatbot rendered as a hologram.", Category: "tech"},
	{PairID: "c4_q1", QueryText: "What is a hologram chatbot?", AnswerText: "A chatbot rendered as a hologram.", Category: "tech"},
}

// fixedModel returns a mock embedder mapping texts to preset vectors.
// Unknown texts map to fallback.
func fixedModel(vectors map[string][]float32, fallback []float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.Dim = len(fallback)
	lookup := func(text string) []float32 {
		if v, ok := vectors[text]; ok {
			return v
		}
		return fallback
	}
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return lookup(text), nil
	}
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = lookup(t)
		}
		return out, nil
	}
	return m
}

func buildSearcher(t *testing.T, records []core.Record, opts ...Option) (*Searcher, *mock.MockEmbedder) {
	t.Helper()
	model := mock.NewMockEmbedder()
	idx, err := index.Build(context.Background(), model, records)
	require.NoError(t, err)
	s, err := NewSearcher(idx, model, opts...)
	require.NoError(t, err)
	return s, model
}

func TestNewSearcher(t *testing.T) {
	model := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(nil, model)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(nil, model, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("with custom logger", func(t *testing.T) {
		_, err := NewSearcher(nil, model, WithLogger(slog.Default()))
		require.NoError(t, err)
	})

	t.Run("nil model", func(t *testing.T) {
		_, err := NewSearcher(nil, nil)
		assert.Equal(t, ErrModelRequired, err)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewSearcher(nil, model, WithMinScore(2))
		assert.Error(t, err)
		_, err = NewSearcher(nil, model, WithKeywordBoost(-1))
		assert.Error(t, err)
	})
}

func TestFindSimilar_EndToEnd(t *testing.T) {
	s, _ := buildSearcher(t, corpus)

	results, err := s.FindSimilar(context.Background(), "capital of France", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Paris is the capital of France.", results[0].AnswerText)
	assert.Equal(t, "What is the capital of France?", results[0].QueryText)
	assert.Equal(t, "c1_q0", results[0].PairID)
	assert.Equal(t, "geography", results[0].Category)

	all, err := s.FindSimilar(context.Background(), "capital of France", len(corpus))
	require.NoError(t, err)
	require.Len(t, all, len(corpus))
	for _, r := range all[1:] {
		assert.Greater(t, results[0].Score, r.Score)
	}
}

func TestFindSimilar_InvalidLimit(t *testing.T) {
	s, _ := buildSearcher(t, corpus)
	for _, limit := range []int{0, -1, -100} {
		_, err := s.FindSimilar(context.Background(), "anything", limit)
		assert.ErrorIs(t, err, core.ErrInvalidLimit)
	}
}

func TestFindSimilar_IndexNotLoaded(t *testing.T) {
	s, err := NewSearcher(nil, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = s.FindSimilar(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, core.ErrIndexNotLoaded)
}

func TestFindSimilar_ModelMismatch(t *testing.T) {
	idx, err := index.Build(context.Background(), mock.NewMockEmbedder(), corpus)
	require.NoError(t, err)

	other := mock.NewMockEmbedderWithID("other-model")
	s, err := NewSearcher(idx, other)
	require.NoError(t, err)

	results, err := s.FindSimilar(context.Background(), "capital of France", 3)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, core.ErrModelMismatch)
	assert.Equal(t, 0, other.CallCount(), "no query vector is computed for a mismatched model")
}

func TestFindSimilar_QueryDimensionMismatch(t *testing.T) {
	s, model := buildSearcher(t, corpus)
	model.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	}

	_, err := s.FindSimilar(context.Background(), "capital", 3)
	assert.ErrorIs(t, err, core.ErrModelMismatch)
}

func TestFindSimilar_EmptyIndex(t *testing.T) {
	s, model := buildSearcher(t, nil)

	results, err := s.FindSimilar(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, model.CallCount())
}

func TestFindSimilar_EncodingError(t *testing.T) {
	s, model := buildSearcher(t, corpus)
	boom := errors.New("encoder offline")
	model.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}

	_, err := s.FindSimilar(context.Background(), "capital", 3)
	assert.ErrorIs(t, err, core.ErrEncoding)
	assert.ErrorIs(t, err, boom)
}

func TestFindSimilar_OrderingAndLimit(t *testing.T) {
	model := fixedModel(map[string][]float32{
		"a": {1, 0, 0},
		"b": {0.8, 0.6, 0},
		"c": {0, 1, 0},
		"d": {-1, 0, 0},
	}, []float32{1, 0, 0})

	records := []core.Record{
		{PairID: "d", QueryText: "d"},
		{PairID: "c", QueryText: "c"},
		{PairID: "b", QueryText: "b"},
		{PairID: "a", QueryText: "a"},
	}
	idx, err := index.Build(context.Background(), model, records)
	require.NoError(t, err)
	s, err := NewSearcher(idx, model)
	require.NoError(t, err)

	results, err := s.FindSimilar(context.Background(), "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 4)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.PairID
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)
	assert.InDelta(t, 0.0, results[2].Score, 1e-6)
	assert.InDelta(t, -1.0, results[3].Score, 1e-6)

	top2, err := s.FindSimilar(context.Background(), "query", 2)
	require.NoError(t, err)
	assert.Equal(t, results[:2], top2)
}

func TestFindSimilar_TiesKeepInsertionOrder(t *testing.T) {
	model := fixedModel(nil, []float32{0, 1})

	var records []core.Record
	for i := 0; i < 20; i++ {
		records = append(records, core.Record{PairID: fmt.Sprintf("r%02d", i), QueryText: fmt.Sprint(i)})
	}
	idx, err := index.Build(context.Background(), model, records, index.WithBatchSize(3), index.WithPoolSize(4))
	require.NoError(t, err)
	s, err := NewSearcher(idx, model)
	require.NoError(t, err)

	for run := 0; run < 3; run++ {
		results, err := s.FindSimilar(context.Background(), "q", 5)
		require.NoError(t, err)
		require.Len(t, results, 5)
		for i, r := range results {
			assert.Equal(t, fmt.Sprintf("r%02d", i), r.PairID)
		}
	}
}

func TestFindSimilar_MinScore(t *testing.T) {
	model := fixedModel(map[string][]float32{
		"near": {1, 0},
		"far":  {0, 1},
	}, []float32{1, 0})
	idx, err := index.Build(context.Background(), model, []core.Record{
		{PairID: "far", QueryText: "far"},
		{PairID: "near", QueryText: "near"},
	})
	require.NoError(t, err)

	s, err := NewSearcher(idx, model, WithMinScore(0.6))
	require.NoError(t, err)

	results, err := s.FindSimilar(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].PairID)
}

func TestFindSimilar_KeywordBoost(t *testing.T) {
	model := fixedModel(map[string][]float32{
		"Tell me about hologram chatbot": {0.6, 0.8},
		"Something unrelated":            {1, 0},
	}, []float32{1, 0})
	idx, err := index.Build(context.Background(), model, []core.Record{
		{PairID: "unrelated", QueryText: "Something unrelated"},
		{PairID: "hologram", QueryText: "Tell me about hologram chatbot"},
	})
	require.NoError(t, err)

	plain, err := NewSearcher(idx, model)
	require.NoError(t, err)
	results, err := plain.FindSimilar(context.Background(), "hologram chatbot", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "unrelated", results[0].PairID)
	// Without a boost scores are plain cosine values.
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)

	boosted, err := NewSearcher(idx, model, WithKeywordBoost(0.5))
	require.NoError(t, err)
	monitor := &recordingMonitor{}
	results, err = boosted.FindSimilarWithMonitor(context.Background(), "hologram chatbot", 1, monitor)
	require.NoError(t, err)
	assert.Equal(t, "hologram", results[0].PairID)
	assert.InDelta(t, 1.1, results[0].Score, 1e-6)
	assert.Equal(t, []string{"hologram"}, monitor.keywordHits)
}

type recordingMonitor struct {
	query       string
	limit       int
	vectorLen   int
	scored      int
	kept        int
	keywordHits []string
	finished    []*core.SearchResult
}

func (m *recordingMonitor) Start(query string, limit int) {
	m.query, m.limit = query, limit
}

func (m *recordingMonitor) AfterEncoding(vector []float32) {
	m.vectorLen = len(vector)
}

func (m *recordingMonitor) AfterScoring(scored, kept int) {
	m.scored, m.kept = scored, kept
}

func (m *recordingMonitor) KeywordHit(r *core.SearchResult) {
	m.keywordHits = append(m.keywordHits, r.PairID)
}

func (m *recordingMonitor) Finish(results []*core.SearchResult) {
	m.finished = results
}

func TestFindSimilarWithMonitor(t *testing.T) {
	s, _ := buildSearcher(t, corpus)
	monitor := &recordingMonitor{}

	results, err := s.FindSimilarWithMonitor(context.Background(), "capital of France", 2, monitor)
	require.NoError(t, err)

	assert.Equal(t, "capital of France", monitor.query)
	assert.Equal(t, 2, monitor.limit)
	assert.Equal(t, mock.DefaultDim, monitor.vectorLen)
	assert.Equal(t, len(corpus), monitor.scored)
	assert.Equal(t, len(corpus), monitor.kept)
	assert.Empty(t, monitor.keywordHits)
	assert.Equal(t, results, monitor.finished)
}

func TestFindSimilar_Concurrent(t *testing.T) {
	s, _ := buildSearcher(t, corpus)
	expected, err := s.FindSimilar(context.Background(), "hologram chatbot", 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.FindSimilar(context.Background(), "hologram chatbot", 3)
			assert.NoError(t, err)
			assert.Equal(t, expected, got)
		}()
	}
	wg.Wait()
}

func TestFindSimilar_PersistedRoundTrip(t *testing.T) {
	ctx := context.Background()
	model := mock.NewMockEmbedder()
	built, err := index.Build(ctx, model, corpus)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "index_files")
	store := badger.NewStore()
	require.NoError(t, built.Persist(ctx, store, dir))
	loaded, err := index.Load(ctx, store, dir, model)
	require.NoError(t, err)

	before, err := NewSearcher(built, model)
	require.NoError(t, err)
	after, err := NewSearcher(loaded, model)
	require.NoError(t, err)

	queries := []string{"capital of France", "volcano eruption", "Hamlet author", "hologram chatbot", "???"}
	for _, q := range queries {
		for k := 1; k <= len(corpus)+1; k++ {
			want, err := before.FindSimilar(ctx, q, k)
			require.NoError(t, err)
			got, err := after.FindSimilar(ctx, q, k)
			require.NoError(t, err)

			require.Len(t, got, len(want), "query %q k=%d", q, k)
			for i := range want {
				assert.Equal(t, want[i].PairID, got[i].PairID, "query %q k=%d", q, k)
				assert.InDelta(t, want[i].Score, got[i].Score, 1e-6)
			}
		}
	}
}
