package storage

import (
	"context"

	"github.com/poiesic/qaindex/core"
)

// IndexStore persists and restores index snapshots.
// Implementations must be safe for concurrent use.
type IndexStore interface {
	// Publish writes snapshot to dir, creating dir and its parents if absent.
	// The previously published snapshot in dir (if any) must remain readable
	// until the new one is completely written.
	// Failures are reported wrapped in core.ErrPersistence.
	Publish(ctx context.Context, dir string, snapshot *core.Snapshot) error

	// Open reads the snapshot most recently published to dir.
	// Returns an error wrapping core.ErrIndexNotFound if dir does not hold a
	// valid, complete snapshot.
	Open(ctx context.Context, dir string) (*core.Snapshot, error)
}
