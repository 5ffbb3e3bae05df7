package core

import (
	"errors"
	"slices"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// ErrNegativeLength indicates a corrupt length prefix in MUS-encoded data.
var ErrNegativeLength = errors.New("negative length")

// nilLength marks a nil slice or map on the wire so that nil and empty
// survive a round trip unchanged.
const nilLength = -1

var (
	// RecordMUS serializes Record values in MUS format.
	RecordMUS = recordMUS{}
	// EntryMUS serializes Entry values in MUS format.
	EntryMUS = entryMUS{}
	// VectorMUS serializes embedding vectors in MUS format.
	VectorMUS = vectorMUS{}
	// MetadataMUS serializes metadata maps in MUS format with sorted keys.
	MetadataMUS = metadataMUS{}
)

type metadataMUS struct{}

func (metadataMUS) Marshal(v map[string]string, bs []byte) (n int) {
	if v == nil {
		return varint.Int.Marshal(nilLength, bs)
	}
	n = varint.Int.Marshal(len(v), bs)
	for _, k := range sortedKeys(v) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v[k], bs[n:])
	}
	return n
}

func (metadataMUS) Unmarshal(bs []byte) (v map[string]string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == nilLength {
		return nil, n, nil
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	// Every pair takes at least two length bytes.
	if length > (len(bs)-n)/2 {
		return nil, n, mus.ErrTooSmallByteSlice
	}
	v = make(map[string]string, length)
	for i := 0; i < length; i++ {
		key, n1, err := ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		val, n1, err := ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[key] = val
	}
	return v, n, nil
}

func (metadataMUS) Size(v map[string]string) (size int) {
	if v == nil {
		return varint.Int.Size(nilLength)
	}
	size = varint.Int.Size(len(v))
	for k, val := range v {
		size += ord.String.Size(k) + ord.String.Size(val)
	}
	return size
}

func (s metadataMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	if v == nil {
		return varint.Int.Marshal(nilLength, bs)
	}
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == nilLength {
		return nil, n, nil
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	if length > (len(bs)-n)/4 {
		return nil, n, mus.ErrTooSmallByteSlice
	}
	v = make([]float32, length)
	for i := range v {
		f, n1, err := raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
		v[i] = f
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) (size int) {
	if v == nil {
		return varint.Int.Size(nilLength)
	}
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (s vectorMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type recordMUS struct{}

func (recordMUS) Marshal(v Record, bs []byte) (n int) {
	n = ord.String.Marshal(v.PairID, bs)
	n += ord.String.Marshal(v.QueryText, bs[n:])
	n += ord.String.Marshal(v.AnswerText, bs[n:])
	n += ord.String.Marshal(v.Category, bs[n:])
	n += MetadataMUS.Marshal(v.Metadata, bs[n:])
	return n
}

func (recordMUS) Unmarshal(bs []byte) (v Record, n int, err error) {
	var n1 int
	if v.PairID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return v, n1, err
	}
	n += n1
	if v.QueryText, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.AnswerText, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Metadata, n1, err = MetadataMUS.Unmarshal(bs[n:])
	return v, n + n1, err
}

func (recordMUS) Size(v Record) (size int) {
	return ord.String.Size(v.PairID) +
		ord.String.Size(v.QueryText) +
		ord.String.Size(v.AnswerText) +
		ord.String.Size(v.Category) +
		MetadataMUS.Size(v.Metadata)
}

func (s recordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type entryMUS struct{}

func (entryMUS) Marshal(v Entry, bs []byte) (n int) {
	n = RecordMUS.Marshal(v.Record, bs)
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	return n
}

func (entryMUS) Unmarshal(bs []byte) (v Entry, n int, err error) {
	v.Record, n, err = RecordMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	var n1 int
	v.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	return v, n + n1, err
}

func (entryMUS) Size(v Entry) (size int) {
	return RecordMUS.Size(v.Record) + VectorMUS.Size(v.Vector)
}

func (s entryMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
