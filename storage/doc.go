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


// Package storage provides the persistence abstraction for qaindex.
//
// The IndexStore interface decouples the in-memory index from the on-disk
// format. An index is handed to the store as a core.Snapshot and comes back
// as one; the layout inside the target directory belongs to the
// implementation.
//
// # Publishing Contract
//
// Publish never partially overwrites a previously valid index. Implementations
// write a complete new copy first and switch to it with a single atomic step:
//
//	store := badger.NewStore()
//	if err := store.Publish(ctx, "./index_files", snapshot); err != nil {
//	    // core.ErrPersistence; the old index is still intact
//	}
//
// Open only ever returns complete snapshots:
//
//	snapshot, err := store.Open(ctx, "./index_files")
//	if errors.Is(err, core.ErrIndexNotFound) {
//	    // nothing usable at that path
//	}
//
// # Thread Safety
//
// All store implementations must be thread-safe. Concurrent publishes to the
// same directory are serialized by the implementation for the duration of
// the write-then-publish sequence.
//
// # Context Support
//
// Store methods accept context.Context and check it between entries. Pass
// context.Background() for operations without specific timeout requirements.
package storage
