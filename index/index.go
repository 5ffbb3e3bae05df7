package index

import (
	"fmt"
	"sync/atomic"

	"github.com/poiesic/qaindex/core"
)

// State is the lifecycle position of an Index.
type State int32

const (
	StateEmpty State = iota
	StateBuilding
	StateBuilt
	StatePersisted
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	case StatePersisted:
		return "persisted"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Index maps pair ids to records and their unit-length embeddings.
type Index struct {
	modelID   string
	dimension int
	entries   []core.Entry
	byID      map[string]int
	expected  int
	state     atomic.Int32
}

func newIndex(modelID string, dimension int, entries []core.Entry, expected int, state State) *Index {
	idx := &Index{
		modelID:   modelID,
		dimension: dimension,
		entries:   entries,
		byID:      make(map[string]int, len(entries)),
		expected:  expected,
	}
	for i := range entries {
		idx.byID[entries[i].Record.PairID] = i
	}
	idx.state.Store(int32(state))
	return idx
}

// ModelID returns the identity of the model that produced the vectors.
func (idx *Index) ModelID() string {
	return idx.modelID
}

// Dimension returns the vector length, or 0 for an index with no entries
// built by a model that does not report its dimension.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Expected returns the number of records the index was built or loaded from.
// It differs from Len only for a build that returned
// core.ErrIndexBuildInconsistency.
func (idx *Index) Expected() int {
	return idx.expected
}

// Consistent reports whether every input record has a stored vector.
func (idx *Index) Consistent() bool {
	return len(idx.entries) == idx.expected
}

// State returns the lifecycle state.
func (idx *Index) State() State {
	return State(idx.state.Load())
}

// Queryable reports whether the index finished building or loading.
func (idx *Index) Queryable() bool {
	switch idx.State() {
	case StateBuilt, StatePersisted, StateLoaded:
		return true
	default:
		return false
	}
}

// Entries returns the stored entries in insertion order.
// Callers must not modify the returned slice.
func (idx *Index) Entries() []core.Entry {
	return idx.entries
}

// Lookup returns the entry stored under pairID.
func (idx *Index) Lookup(pairID string) (core.Entry, bool) {
	i, ok := idx.byID[pairID]
	if !ok {
		return core.Entry{}, false
	}
	return idx.entries[i], true
}

// Snapshot returns the durable form of the index. The snapshot shares
// entries with the index.
func (idx *Index) Snapshot() *core.Snapshot {
	return &core.Snapshot{
		ModelID:   idx.modelID,
		Dimension: idx.dimension,
		Entries:   idx.entries,
	}
}
