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


// Package smartfilter scores candidates on four relevance dimensions and
// keeps the best few.
//
// Each candidate receives:
//   - content relevance: keyword, phrase and entity overlap with the query
//   - semantic similarity: a sequence-matcher ratio, zeroed below a threshold
//   - context relevance: agreement with optional time, topic and preference hints
//   - intent match: shared keywords, entities, time and comparison cues
//
// The weighted sum of these is the final score. Candidates below the
// content relevance threshold are dropped, the rest are sorted by final
// score and truncated. Scoring runs concurrently on a worker pool.
package smartfilter
