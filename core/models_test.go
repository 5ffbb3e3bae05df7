package core

import (
	"testing"
)

func TestPairID(t *testing.T) {
	tests := []struct {
		name    string
		chunkID string
		index   int
		want    string
	}{
		{
			name:    "first question",
			chunkID: "c1",
			index:   0,
			want:    "c1_q0",
		},
		{
			name:    "multi digit index",
			chunkID: "faq-7",
			index:   12,
			want:    "faq-7_q12",
		},
		{
			name:    "chunk id with underscore",
			chunkID: "a_b",
			index:   3,
			want:    "a_b_q3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PairID(tt.chunkID, tt.index)
			if got != tt.want {
				t.Errorf("PairID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDataset_QuestionCount(t *testing.T) {
	ds := Dataset{
		{Name: "geo", Chunks: []Chunk{
			{ID: "c1", Questions: []string{"a", "b"}},
			{ID: "c2", Questions: nil},
		}},
		{Name: "empty"},
		{Name: "misc", Chunks: []Chunk{
			{ID: "c3", Questions: []string{"c", "d", "e"}},
		}},
	}

	if got := ds.QuestionCount(); got != 5 {
		t.Errorf("QuestionCount() = %d, want 5", got)
	}

	if got := (Dataset{}).QuestionCount(); got != 0 {
		t.Errorf("QuestionCount() on empty dataset = %d, want 0", got)
	}
}

func TestSearchResult_String(t *testing.T) {
	r := &SearchResult{QueryText: "q", AnswerText: "a", Score: 0.5}
	want := `{'text': "q", 'answer': "a", 'score': 0.5000}`
	if got := r.String(); got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
}
