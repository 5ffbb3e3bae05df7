package dataset

import (
	"fmt"

	"github.com/poiesic/qaindex/core"
)

// Normalize flattens ds into one record per chunk question, in dataset
// order. Every chunk must be valid and every derived pair id unique.
func Normalize(ds core.Dataset) ([]core.Record, error) {
	records := make([]core.Record, 0, ds.QuestionCount())
	seen := make(map[string]string, ds.QuestionCount())

	for _, category := range ds {
		for i := range category.Chunks {
			chunk := &category.Chunks[i]
			if err := core.ValidateChunk(chunk); err != nil {
				return nil, fmt.Errorf("category %q chunk %d: %w", category.Name, i, err)
			}

			for q, question := range chunk.Questions {
				pairID := core.PairID(chunk.ID, q)
				if prev, ok := seen[pairID]; ok {
					return nil, fmt.Errorf("%w: %w: %s in category %q, first seen in category %q",
						core.ErrDatasetMalformed, core.ErrDuplicatePairID, pairID, category.Name, prev)
				}
				seen[pairID] = category.Name

				records = append(records, core.Record{
					PairID:     pairID,
					QueryText:  question,
					AnswerText: chunk.Text,
					Category:   category.Name,
					Metadata:   chunk.Metadata,
				})
			}
		}
	}

	return records, nil
}
