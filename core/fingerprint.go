package core

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a content digest of a Snapshot.
type Fingerprint uint64

// String renders the fingerprint as fixed-width hex.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// ParseFingerprint parses the output of Fingerprint.String.
func ParseFingerprint(s string) (Fingerprint, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return Fingerprint(v), nil
}

// SnapshotFingerprint computes a deterministic BLAKE2b digest over the model
// identity, dimension and every entry of a snapshot, in order.
// Identical snapshots always produce identical fingerprints.
func SnapshotFingerprint(s *Snapshot) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits

	var header []byte
	header = binary.BigEndian.AppendUint64(header, uint64(len(s.ModelID)))
	header = append(header, s.ModelID...)
	header = binary.BigEndian.AppendUint64(header, uint64(s.Dimension))
	header = binary.BigEndian.AppendUint64(header, uint64(len(s.Entries)))
	h.Write(header)

	var buf []byte
	for _, e := range s.Entries {
		size := EntryMUS.Size(e)
		if cap(buf) < size {
			buf = make([]byte, size)
		}
		buf = buf[:size]
		EntryMUS.Marshal(e, buf)
		h.Write(buf)
	}

	return Fingerprint(binary.LittleEndian.Uint64(h.Sum(nil)))
}
