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

// Package dataset reads question/answer corpora and flattens them into the
// records an index is built from.
//
// A dataset file is a JSON object mapping category names to arrays of
// chunks:
//
//	{
//	  "geography": [
//	    {
//	      "id": "c1",
//	      "text": "Paris is the capital of France.",
//	      "metadata": {"source": "atlas"},
//	      "questions": ["What is the capital of France?"]
//	    }
//	  ]
//	}
//
// Category order in the file is preserved. Every question of every chunk
// becomes one core.Record keyed "{chunk id}_q{question index}".
package dataset
