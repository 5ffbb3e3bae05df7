package index

import (
	"context"
	"fmt"

	"github.com/poiesic/qaindex/ai"
	"github.com/poiesic/qaindex/core"
	"github.com/poiesic/qaindex/storage"
)

// Persist publishes the index under dir through store. A previously
// persisted index under dir stays intact if publishing fails.
func (idx *Index) Persist(ctx context.Context, store storage.IndexStore, dir string) error {
	if store == nil {
		return ErrStoreRequired
	}
	if !idx.Queryable() {
		return fmt.Errorf("%w: %w: index is %s", core.ErrPersistence, core.ErrIndexNotLoaded, idx.State())
	}
	if !idx.Consistent() {
		return fmt.Errorf("%w: %w: %d of %d records indexed",
			core.ErrPersistence, core.ErrIndexBuildInconsistency, idx.Len(), idx.Expected())
	}

	if err := store.Publish(ctx, dir, idx.Snapshot()); err != nil {
		return err
	}

	if idx.State() == StateBuilt {
		idx.state.CompareAndSwap(int32(StateBuilt), int32(StatePersisted))
	}
	return nil
}

// Load reads the index persisted under dir and checks that it was built by
// a model with the identity of model.
func Load(ctx context.Context, store storage.IndexStore, dir string, model ai.Model, opts ...Option) (*Index, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if model == nil {
		return nil, ErrModelRequired
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger.With("component", "index-loader")

	snapshot, err := store.Open(ctx, dir)
	if err != nil {
		return nil, err
	}

	if snapshot.ModelID != model.ModelID() {
		return nil, fmt.Errorf("%w: index at %s was built with %q, configured model is %q",
			core.ErrModelMismatch, dir, snapshot.ModelID, model.ModelID())
	}
	if dim := model.Dimension(); dim > 0 && snapshot.Dimension > 0 && snapshot.Dimension != dim {
		return nil, fmt.Errorf("%w: index at %s has %d dimensions, configured model produces %d",
			core.ErrModelMismatch, dir, snapshot.Dimension, dim)
	}

	for i := range snapshot.Entries {
		if err := core.ValidateEntry(&snapshot.Entries[i], snapshot.Dimension); err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %w", core.ErrIndexNotFound, dir, i, err)
		}
	}

	idx := newIndex(snapshot.ModelID, snapshot.Dimension, snapshot.Entries, len(snapshot.Entries), StateLoaded)
	if len(idx.byID) != idx.Len() {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrIndexNotFound, dir, core.ErrDuplicatePairID)
	}

	logger.Info("loaded index", "path", dir, "model", idx.ModelID(), "entries", idx.Len())
	return idx, nil
}
