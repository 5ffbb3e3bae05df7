package core

import "fmt"

// Chunk is a unit of source material. Its Questions paraphrase what the
// chunk's Text answers.
type Chunk struct {
	ID        string
	Text      string
	Metadata  map[string]string // Opaque key/value pairs carried onto every record
	Questions []string
}

// Category groups related chunks under a label.
type Category struct {
	Name   string
	Chunks []Chunk
}

// Dataset is the hierarchical source corpus in file order.
type Dataset []Category

// QuestionCount returns the total number of questions across all chunks.
func (d Dataset) QuestionCount() int {
	n := 0
	for _, cat := range d {
		for _, chunk := range cat.Chunks {
			n += len(chunk.Questions)
		}
	}
	return n
}

// Record is the indexed unit: one chunk/question pair.
type Record struct {
	PairID     string
	QueryText  string // The question; this is the text that gets embedded
	AnswerText string
	Category   string
	Metadata   map[string]string
}

// PairID derives the record key for the question at position i of a chunk.
func PairID(chunkID string, i int) string {
	return fmt.Sprintf("%s_q%d", chunkID, i)
}

// Entry binds a record to its embedding vector.
type Entry struct {
	Record Record
	Vector []float32
}

// Snapshot is the durable form of an index: everything needed to rebuild
// a queryable index in another process.
type Snapshot struct {
	ModelID   string
	Dimension int
	Entries   []Entry // Insertion order, which is also the tie-break order
}

// SearchResult is a single ranked answer.
type SearchResult struct {
	PairID     string
	QueryText  string
	AnswerText string
	Category   string
	Metadata   map[string]string
	Score      float32
}

// String renders the result the way the CLI prints it.
func (r *SearchResult) String() string {
	return fmt.Sprintf("{'text': %q, 'answer': %q, 'score': %.4f}", r.QueryText, r.AnswerText, r.Score)
}
