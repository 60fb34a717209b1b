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
// Package search retrieves candidate passages for a question.
//
// The Searcher embeds the query with an ai.Embedder and asks a
// storage.VectorIndex for the nearest stored passages. Each match becomes a
// core.Candidate whose BaseScore is the cosine similarity reported by the
// index. Matches whose metadata lacks the passage keys are skipped.
//
// Retrieval uses the raw query. Conversation memory never rewrites it.
package search
