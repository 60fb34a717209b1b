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


// Package storage provides the storage abstraction layer for recall.
//
// This package defines repository interfaces that decouple storage implementation
// from the retrieval pipeline. It allows for different storage backends (BadgerDB,
// Qdrant, JSON files) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces to enforce
// abstraction and enable multiple storage backend implementations:
//
//	docs, err := badger.NewDocumentRepository(backend)  // returns storage.DocumentRepository
//
// This design decision prioritizes:
//   - Abstraction: Prevents accidental coupling to BadgerDB specifics
//   - Swappability: The vector index can live in Qdrant while memories stay local
//   - Testing: Consumers can use mock implementations without modification
//
// # Architecture
//
//   - VectorIndex: Nearest-neighbour lookup with metadata filters
//   - DocumentWriter: Upserts embedded passages
//   - DocumentRepository: Full document storage, including scans for re-embedding
//   - MemoryRepository: Per-user, per-tier conversation memory documents
//
// # Memory Documents
//
// Each memory tier is persisted as an independent document mapping a user id
// to an ordered array of memory items. A save replaces the whole array for
// one user; there are no partial updates.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
