package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/poiesic/qaindex/core"
)

// Chunk field names.
const (
	fieldID        = "id"
	fieldText      = "text"
	fieldMetadata  = "metadata"
	fieldQuestions = "questions"
)

var jsonNull = []byte("null")

// Path returns the location of dataset version v under dir.
func Path(dir string, v int) string {
	return filepath.Join(dir, fmt.Sprintf("dataset_v%d.json", v))
}

// Load reads the dataset file at path.
func Load(path string) (core.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrDatasetNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	ds, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode reads a dataset from r. The top-level object is consumed token by
// token so categories keep their file order.
func Decode(r io.Reader) (core.Dataset, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, malformed("reading top level: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, malformed("top level must be an object of categories")
	}

	ds := core.Dataset{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("reading category name: %v", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, malformed("unexpected token %v", tok)
		}

		var rawChunks []map[string]json.RawMessage
		if err := dec.Decode(&rawChunks); err != nil {
			return nil, malformed("category %q: must be an array of chunk objects: %v", name, err)
		}

		category := core.Category{Name: name, Chunks: make([]core.Chunk, 0, len(rawChunks))}
		for i, fields := range rawChunks {
			chunk, err := decodeChunk(fields)
			if err != nil {
				return nil, fmt.Errorf("category %q chunk %d: %w", name, i, err)
			}
			category.Chunks = append(category.Chunks, chunk)
		}
		ds = append(ds, category)
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed("reading end of object: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed("unexpected data after top-level object")
	}

	return ds, nil
}

func decodeChunk(fields map[string]json.RawMessage) (core.Chunk, error) {
	if fields == nil {
		return core.Chunk{}, malformed("chunk must be an object")
	}

	var chunk core.Chunk
	var err error

	if chunk.ID, err = stringField(fields, fieldID); err != nil {
		return chunk, err
	}
	if chunk.Text, err = stringField(fields, fieldText); err != nil {
		return chunk, err
	}
	if chunk.Metadata, err = metadataField(fields); err != nil {
		return chunk, err
	}

	raw, err := requiredField(fields, fieldQuestions)
	if err != nil {
		return chunk, err
	}
	if err := json.Unmarshal(raw, &chunk.Questions); err != nil {
		return chunk, malformed("%q must be an array of strings", fieldQuestions)
	}

	return chunk, nil
}

func requiredField(fields map[string]json.RawMessage, name string) (json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, malformed("missing %q field", name)
	}
	if isNull(raw) {
		return nil, malformed("%q must not be null", name)
	}
	return raw, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, err := requiredField(fields, name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed("%q must be a string", name)
	}
	return s, nil
}

// metadataField keeps string values verbatim and any other JSON value as
// its compact JSON text. A null metadata object yields a nil map.
func metadataField(fields map[string]json.RawMessage) (map[string]string, error) {
	raw, ok := fields[fieldMetadata]
	if !ok {
		return nil, malformed("missing %q field", fieldMetadata)
	}
	if isNull(raw) {
		return nil, nil
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, malformed("%q must be an object", fieldMetadata)
	}

	metadata := make(map[string]string, len(values))
	for k, v := range values {
		var s string
		if err := json.Unmarshal(v, &s); err == nil && !isNull(v) {
			metadata[k] = s
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, malformed("%q value %q: %v", fieldMetadata, k, err)
		}
		metadata[k] = buf.String()
	}
	return metadata, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrDatasetMalformed, fmt.Sprintf(format, args...))
}
