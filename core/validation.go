// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
)

// ValidateChunk validates a Chunk according to dataset rules.
//
// Validation rules:
//   - ID must not be empty
//   - every question must be non-empty
//
// NOT validated:
//   - Text (an empty answer is odd but legal)
//   - Metadata (opaque)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrDatasetMalformed)
	}

	if chunk.ID == "" {
		return fmt.Errorf("%w: chunk id cannot be empty", ErrDatasetMalformed)
	}

	for i, q := range chunk.Questions {
		if q == "" {
			return fmt.Errorf("%w: chunk %q question %d is empty", ErrDatasetMalformed, chunk.ID, i)
		}
	}

	return nil
}

// ValidateEntry validates an Entry before it is stored in an index.
// A dim of 0 skips the dimension check.
func ValidateEntry(entry *Entry, dim int) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrEncoding)
	}

	if entry.Record.PairID == "" {
		return fmt.Errorf("%w: entry has no pair id", ErrEncoding)
	}

	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: %s: empty vector", ErrEncoding, entry.Record.PairID)
	}

	if dim > 0 && len(entry.Vector) != dim {
		return fmt.Errorf("%w: %s: vector has %d dimensions, want %d",
			ErrEncoding, entry.Record.PairID, len(entry.Vector), dim)
	}

	for _, v := range entry.Vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: %s: vector contains non-finite values", ErrEncoding, entry.Record.PairID)
		}
	}

	return nil
}
