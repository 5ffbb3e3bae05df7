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

// Package index builds, persists and loads embedding indexes.
//
// An Index binds every record of a normalized dataset to the unit-length
// embedding of its query text. Indexes move through a small lifecycle:
//
//	Empty -> Building -> Built -> Persisted
//	                       Loaded
//
// Build and Load are the only ways to obtain a queryable Index. Once Built
// or Loaded an Index is never mutated, so any number of goroutines may read
// it concurrently.
//
// Encoding runs in batches on an ants worker pool. A batch that keeps
// failing after its retries fails the whole build with an *EncodingFailure
// naming every affected pair id; records are never dropped silently. When
// the number of stored vectors still differs from the number of input
// records, Build returns the partial Index together with
// core.ErrIndexBuildInconsistency so the caller can decide what to do.
package index
