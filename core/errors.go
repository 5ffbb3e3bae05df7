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

import "errors"

// Pipeline errors. Every stage wraps one of these with fmt.Errorf("%w: ...")
// so callers can tell which stage failed with errors.Is.
var (
	// ErrDatasetNotFound indicates the dataset file does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetMalformed indicates the dataset does not have the expected
	// category -> chunks -> questions shape.
	ErrDatasetMalformed = errors.New("dataset malformed")

	// ErrDuplicatePairID indicates two records derived the same pair id.
	ErrDuplicatePairID = errors.New("duplicate pair id")

	// ErrEncoding indicates the embedding model failed to encode a record or query.
	ErrEncoding = errors.New("encoding failed")

	// ErrIndexBuildInconsistency indicates the number of stored vectors does
	// not match the number of input records after a build.
	ErrIndexBuildInconsistency = errors.New("index build inconsistency")

	// ErrPersistence indicates an index could not be written to disk.
	ErrPersistence = errors.New("index persistence failed")

	// ErrIndexNotFound indicates a path does not hold a valid persisted index.
	ErrIndexNotFound = errors.New("index not found")

	// ErrModelMismatch indicates vectors from one model were about to be
	// compared against vectors from another.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be greater than 0")

	// ErrIndexNotLoaded indicates a query against an index that was never
	// built or loaded.
	ErrIndexNotLoaded = errors.New("index not loaded")
)
