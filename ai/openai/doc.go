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

// Package openai provides the embedding model backed by an OpenAI-compatible
// HTTP API.
//
// The implementation uses the langchaingo library and works against OpenAI
// itself or any compatible server (text-embeddings-inference, Ollama,
// LocalAI, vLLM). The configured model name doubles as the model identity
// recorded in persisted indexes.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:8080"), // /v1 added automatically
//	    ai.WithEmbeddingModel("sentence-transformers/nli-mpnet-base-v2"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "sample text")
package openai
