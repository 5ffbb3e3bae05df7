package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	metaPrefix  = "meta"
	entryPrefix = "entry"
)

// Metadata key names
const (
	metaModel       = "model"
	metaDimension   = "dim"
	metaCount       = "count"
	metaFingerprint = "fingerprint"
)

// makeMetaKey generates a key for an index metadata value.
func makeMetaKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", metaPrefix, name))
}

// makeEntryKey generates a key for the entry at position seq.
// Format: prefix:seq
func makeEntryKey(seq uint64) []byte {
	prefix := entryPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for seq
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so iteration returns entries in insertion order
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// entryKeyPrefix returns the prefix shared by all entry keys.
func entryKeyPrefix() []byte {
	return []byte(entryPrefix + ":")
}

// encodeUint64 encodes a metadata counter.
func encodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// decodeUint64 decodes a metadata counter written by encodeUint64.
func decodeUint64(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid counter length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
