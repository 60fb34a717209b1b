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


// Package ai provides abstractions for the model services used by recall.
//
// Two services are involved in answering a question:
//
//   - Embedder: turns passages and queries into vectors for retrieval
//   - Generator: drafts an answer from the surviving candidates and any
//     conversation memory
//
// AIProvider bundles both so they share configuration and lifecycle.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (Ollama, vLLM, LocalAI, OpenAI)
//   - ai/mock: test doubles with injectable behaviour
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behaviour and inspect calls.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	gen, err := provider.Generator().Generate(ctx, ai.GenerationRequest{
//	    Question:   "What was 2024 revenue?",
//	    Candidates: candidates,
//	})
//	cost := ai.NewCostCalculator(cfg).Cost(gen.InputTokens, gen.OutputTokens)
package ai
