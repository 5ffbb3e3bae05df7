package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/qaindex/ai"
	"github.com/poiesic/qaindex/core"
)

// Build encodes the query text of every record with model and returns the
// resulting Index.
//
// An empty record slice yields an empty, queryable Index. A build either
// encodes every record or fails with an *EncodingFailure. If the model
// reports success but returns fewer vectors than requested, Build returns
// the partial Index together with core.ErrIndexBuildInconsistency.
func Build(ctx context.Context, model ai.Model, records []core.Record, opts ...Option) (*Index, error) {
	if model == nil {
		return nil, ErrModelRequired
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger.With("component", "index-builder", "model", model.ModelID())

	b := &builder{
		ctx:      ctx,
		cfg:      cfg,
		model:    model,
		records:  records,
		slots:    make([]core.Entry, len(records)),
		filled:   make([]bool, len(records)),
		failures: make([]error, len(records)),
		logger:   logger,
	}
	b.dimension.Store(int64(model.Dimension()))

	idx := newIndex(model.ModelID(), model.Dimension(), nil, len(records), StateBuilding)
	if len(records) == 0 {
		logger.Info("built empty index")
		idx.state.Store(int32(StateBuilt))
		return idx, nil
	}

	logger.Info("building index", "records", len(records), "batchSize", cfg.batchSize, "poolSize", cfg.poolSize)

	if err := b.run(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}

	if failure := b.encodingFailure(); failure != nil {
		logger.Error("failed to encode records", "failed", len(failure.Failures), "records", len(records))
		return nil, failure
	}

	entries := make([]core.Entry, 0, len(records))
	for i, ok := range b.filled {
		if ok {
			entries = append(entries, b.slots[i])
		}
	}

	idx = newIndex(model.ModelID(), int(b.dimension.Load()), entries, len(records), StateBuilt)
	logger.Info("index count after build", "count", idx.Len(), "records", len(records), "elapsed", b.progress.elapsed())

	if !idx.Consistent() {
		if idx.Len() == 0 {
			logger.Error("index count is 0 but records were provided", "records", len(records))
		}
		return idx, fmt.Errorf("%w: stored %d vectors for %d records",
			core.ErrIndexBuildInconsistency, idx.Len(), len(records))
	}

	return idx, nil
}

type builder struct {
	ctx       context.Context
	cfg       *buildConfig
	model     ai.Model
	records   []core.Record
	slots     []core.Entry
	filled    []bool
	failures  []error
	dimension atomic.Int64
	progress  *progressTracker
	logger    *slog.Logger
}

// run encodes every batch on a worker pool. Workers write only the slots of
// their own batch, so ordering and count are preserved without locking.
func (b *builder) run() error {
	pool, err := ants.NewPool(b.cfg.poolSize)
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	b.progress = newProgressTracker(b.cfg.progress, len(b.records), b.cfg.reportInterval)

	var wg sync.WaitGroup
	for start := 0; start < len(b.records); start += b.cfg.batchSize {
		end := min(start+b.cfg.batchSize, len(b.records))

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			b.encodeBatch(start, end)
		})
		if err != nil {
			wg.Done()
			b.fail(start, end, fmt.Errorf("submitting batch: %w", err))
		}
	}
	wg.Wait()

	b.progress.finish()
	return nil
}

func (b *builder) encodeBatch(start, end int) {
	texts := make([]string, end-start)
	for i := range texts {
		texts[i] = b.records[start+i].QueryText
	}

	var vectors [][]float32
	err := retryWithBackoff(b.ctx, b.logger, func() error {
		var err error
		vectors, err = b.model.EmbedTexts(b.ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) > len(texts) {
			return fmt.Errorf("model returned %d vectors for %d texts", len(vectors), len(texts))
		}
		return nil
	}, b.cfg.maxAttempts, b.cfg.retryDelay)
	if err != nil {
		b.fail(start, end, err)
		return
	}

	if len(vectors) < len(texts) {
		b.logger.Warn("model returned fewer vectors than texts", "texts", len(texts), "vectors", len(vectors))
	}

	for i, vec := range vectors {
		b.store(start+i, vec)
	}
	b.progress.add(len(texts))
}

func (b *builder) store(pos int, vec []float32) {
	record := b.records[pos]

	if len(vec) > 0 {
		// The first vector fixes the dimension when the model does not report one.
		b.dimension.CompareAndSwap(0, int64(len(vec)))
	}

	unit, ok := normalizeVector(vec)
	if !ok {
		b.failures[pos] = fmt.Errorf("%w: %s: zero or empty vector", core.ErrEncoding, record.PairID)
		return
	}

	entry := core.Entry{Record: record, Vector: unit}
	if err := core.ValidateEntry(&entry, int(b.dimension.Load())); err != nil {
		b.failures[pos] = err
		return
	}

	b.slots[pos] = entry
	b.filled[pos] = true
}

func (b *builder) fail(start, end int, err error) {
	b.logger.Warn("batch failed", "from", b.records[start].PairID, "size", end-start, "err", err)
	for i := start; i < end; i++ {
		b.failures[i] = err
	}
}

func (b *builder) encodingFailure() *EncodingFailure {
	var failures []RecordFailure
	for i, err := range b.failures {
		if err != nil {
			failures = append(failures, RecordFailure{PairID: b.records[i].PairID, Err: err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &EncodingFailure{Total: len(b.records), Failures: failures}
}
