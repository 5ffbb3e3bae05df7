package badger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/qaindex/core"
	"github.com/poiesic/qaindex/storage"
)

const (
	// currentFile names the live generation and its fingerprint.
	currentFile = "CURRENT"
	// generationPrefix prefixes every generation directory.
	generationPrefix = "gen-"
	// ctxCheckInterval is how many entries are processed between context checks.
	ctxCheckInterval = 256
	// maxPrealloc caps slice preallocation driven by on-disk counters.
	maxPrealloc = 1 << 16
)

// Store implements storage.IndexStore with one BadgerDB database per
// published generation. A CURRENT file, replaced by atomic rename, selects
// the live generation.
type Store struct {
	logger *slog.Logger
}

var _ storage.IndexStore = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore creates a new Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "index-store")
	return s
}

// Publish writes snapshot as a new generation under dir and makes it live.
func (s *Store) Publish(ctx context.Context, dir string, snapshot *core.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: %s: snapshot is nil", core.ErrPersistence, dir)
	}

	unlock, err := lockPath(ctx, dir)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	defer unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	fingerprint := core.SnapshotFingerprint(snapshot)
	generation := generationPrefix + uuid.NewString()
	genPath := filepath.Join(dir, generation)

	s.logger.Debug("writing index generation", "path", genPath, "entries", len(snapshot.Entries))
	if err := s.writeGeneration(ctx, genPath, snapshot, fingerprint); err != nil {
		s.discard(genPath)
		return fmt.Errorf("%w: %s: %w", core.ErrPersistence, dir, err)
	}

	if err := writeCurrent(dir, generation, fingerprint); err != nil {
		s.discard(genPath)
		return fmt.Errorf("%w: %s: %w", core.ErrPersistence, dir, err)
	}

	s.logger.Info("published index",
		"path", dir,
		"generation", generation,
		"entries", len(snapshot.Entries),
		"model", snapshot.ModelID,
		"fingerprint", fingerprint.String())

	s.removeStaleGenerations(dir, generation)
	return nil
}

// Open reads the live generation under dir.
func (s *Store) Open(ctx context.Context, dir string) (*core.Snapshot, error) {
	var lastErr error

	// A concurrent publish may retire the generation between reading
	// CURRENT and opening it, so CURRENT is re-read once.
	for attempt := 0; attempt < 2; attempt++ {
		generation, fingerprint, err := readCurrent(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrIndexNotFound, dir, err)
		}

		snapshot, err := s.readGeneration(ctx, filepath.Join(dir, generation), fingerprint)
		if err == nil {
			s.logger.Debug("opened index",
				"path", dir,
				"generation", generation,
				"entries", len(snapshot.Entries))
			return snapshot, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if !errors.Is(err, fs.ErrNotExist) {
			break
		}
	}

	return nil, fmt.Errorf("%w: %s: %w", core.ErrIndexNotFound, dir, lastErr)
}

func (s *Store) writeGeneration(ctx context.Context, genPath string, snapshot *core.Snapshot, fingerprint core.Fingerprint) error {
	backend, err := OpenBackend(genPath)
	if err != nil {
		return err
	}

	err = backend.WithBatch(func(wb *badger.WriteBatch) error {
		meta := []struct {
			name  string
			value []byte
		}{
			{metaModel, []byte(snapshot.ModelID)},
			{metaDimension, encodeUint64(uint64(snapshot.Dimension))},
			{metaCount, encodeUint64(uint64(len(snapshot.Entries)))},
			{metaFingerprint, encodeUint64(uint64(fingerprint))},
		}
		for _, m := range meta {
			if err := wb.Set(makeMetaKey(m.name), m.value); err != nil {
				return err
			}
		}

		for i := range snapshot.Entries {
			if i%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := wb.Set(makeEntryKey(uint64(i)), storage.MarshalEntry(&snapshot.Entries[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		err = backend.Sync()
	}

	closeErr := backend.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func (s *Store) readGeneration(ctx context.Context, genPath string, expected core.Fingerprint) (*core.Snapshot, error) {
	backend, err := OpenBackendReadOnly(genPath)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	snapshot := &core.Snapshot{}
	var count uint64
	var stored core.Fingerprint

	err = backend.WithTx(func(tx *badger.Txn) error {
		model, err := readValue(tx, metaModel)
		if err != nil {
			return err
		}
		snapshot.ModelID = string(model)

		dim, err := readCounter(tx, metaDimension)
		if err != nil {
			return err
		}
		snapshot.Dimension = int(dim)

		if count, err = readCounter(tx, metaCount); err != nil {
			return err
		}

		fp, err := readCounter(tx, metaFingerprint)
		if err != nil {
			return err
		}
		stored = core.Fingerprint(fp)

		snapshot.Entries = make([]core.Entry, 0, min(count, maxPrealloc))

		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryKeyPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		n := 0
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++

			var entry *core.Entry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			snapshot.Entries = append(snapshot.Entries, *entry)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if uint64(len(snapshot.Entries)) != count {
		return nil, fmt.Errorf("%w: expected %d entries, found %d",
			storage.ErrTruncatedData, count, len(snapshot.Entries))
	}

	actual := core.SnapshotFingerprint(snapshot)
	if actual != stored || actual != expected {
		return nil, fmt.Errorf("%w: computed %s, stored %s, current %s",
			storage.ErrChecksumMismatch, actual, stored, expected)
	}

	return snapshot, nil
}

// discard removes a generation that never became live.
func (s *Store) discard(genPath string) {
	if err := os.RemoveAll(genPath); err != nil {
		s.logger.Warn("failed to remove incomplete generation", "path", genPath, "err", err)
	}
}

// removeStaleGenerations deletes every generation under dir except keep.
func (s *Store) removeStaleGenerations(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("failed to list generations", "path", dir, "err", err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, generationPrefix) || name == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			s.logger.Warn("failed to remove stale generation", "generation", name, "err", err)
			continue
		}
		s.logger.Debug("removed stale generation", "generation", name)
	}
}

// writeCurrent atomically points dir at generation. The temporary file name
// is unique per call so concurrent writers never share it.
func writeCurrent(dir, generation string, fingerprint core.Fingerprint) error {
	tmp := filepath.Join(dir, currentFile+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(f, "%s %s\n", generation, fingerprint); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, filepath.Join(dir, currentFile)); err != nil {
		os.Remove(tmp)
		return err
	}

	syncDir(dir)
	return nil
}

// readCurrent returns the live generation name and its fingerprint.
func readCurrent(dir string) (string, core.Fingerprint, error) {
	data, err := os.ReadFile(filepath.Join(dir, currentFile))
	if err != nil {
		return "", 0, err
	}

	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return "", 0, fmt.Errorf("malformed %s file", currentFile)
	}

	generation := fields[0]
	if !strings.HasPrefix(generation, generationPrefix) || filepath.Base(generation) != generation {
		return "", 0, fmt.Errorf("malformed generation name %q", generation)
	}

	fingerprint, err := core.ParseFingerprint(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("malformed fingerprint: %w", err)
	}

	return generation, fingerprint, nil
}

// syncDir flushes directory metadata so the rename survives a crash.
// Not every platform supports syncing directories; failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func readValue(tx *badger.Txn, name string) ([]byte, error) {
	item, err := tx.Get(makeMetaKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("missing %s metadata", name)
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func readCounter(tx *badger.Txn, name string) (uint64, error) {
	val, err := readValue(tx, name)
	if err != nil {
		return 0, err
	}
	v, err := decodeUint64(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
