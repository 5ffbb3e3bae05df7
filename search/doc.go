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

// Package search answers free-text queries against an embedding index.
//
// A Searcher encodes the query with the same model the index was built
// with, scores every stored vector by cosine similarity and returns the
// best matches in descending score order. Equal scores keep the index's
// insertion order, so results are deterministic.
//
// Optional refinements are a minimum score threshold and a keyword boost
// that rewards records whose question contains every significant query
// word. Both are off by default.
package search
