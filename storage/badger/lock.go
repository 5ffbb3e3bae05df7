package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/poiesic/qaindex/storage"
)

// pathLocks holds one single-slot channel per absolute index path.
var pathLocks sync.Map

// lockPath acquires exclusive ownership of dir within this process.
// The returned function releases it. Blocks until the path is free or ctx is done.
func lockPath(ctx context.Context, dir string) (func(), error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	v, _ := pathLocks.LoadOrStore(abs, make(chan struct{}, 1))
	slot := v.(chan struct{})

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrStoreLocked, abs, ctx.Err())
	}
}
