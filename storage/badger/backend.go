package badger

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	// Index generations are written once and read whole.
	generationMemTableSize     = 8 << 20
	generationValueLogFileSize = 64 << 20
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a writable BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string) (*Backend, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return nil, err
		}
		if info, err = os.Stat(filePath); err != nil {
			return nil, err
		}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", filePath)
	}
	return open(badger.DefaultOptions(filePath))
}

// OpenBackendReadOnly opens an existing BadgerDB database without write access.
// Multiple read-only backends may share a directory.
func OpenBackendReadOnly(filePath string) (*Backend, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", filePath)
	}
	return open(badger.DefaultOptions(filePath).WithReadOnly(true))
}

func open(opts badger.Options) (*Backend, error) {
	logger := slog.Default().With("component", "badger")

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None
	opts.NumVersionsToKeep = 1
	opts = opts.
		WithMemTableSize(generationMemTableSize).
		WithValueLogFileSize(generationValueLogFileSize)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// Sync flushes written data to stable storage.
func (b *Backend) Sync() error {
	return b.db.Sync()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithBatch executes fn against a write batch and flushes it.
// Batches are not bounded by transaction size limits, so they suit bulk loads.
func (b *Backend) WithBatch(fn func(wb *badger.WriteBatch) error) error {
	wb := b.db.NewWriteBatch()
	if err := fn(wb); err != nil {
		wb.Cancel()
		return err
	}
	return wb.Flush()
}
