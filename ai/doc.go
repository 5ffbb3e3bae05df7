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

// Package ai provides abstractions for the text embedding models used to
// build and query qaindex indexes.
//
// The package defines three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Model: An Embedder with an identity (model id and vector dimension)
//   - AIProvider: Owns a Model and its lifecycle
//
// The identity matters because vectors from different models are not
// comparable. Persisted indexes record the ModelID they were built with and
// refuse to be queried through a different one.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Deterministic test doubles without external dependencies
//
// Public production constructors return interface types. Mock constructors
// return concrete types so tests can inject behavior and assert call counts.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "What is the capital of France?")
package ai
