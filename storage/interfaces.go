package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// VectorIndex finds stored passages near a query vector.
// Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// FindSimilar returns documents with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	// When filter is non-empty, only documents whose metadata matches every
	// key/value pair are considered.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int, filter map[string]any) ([]*core.DocumentMatch, error)

	// Close releases resources held by the index.
	Close() error
}

// DocumentWriter stores embedded passages.
type DocumentWriter interface {
	// AddDocuments inserts or replaces documents by ID.
	// Sets InsertedAt and UpdatedAt timestamps.
	// Returns the documents with timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)
}

// DocumentIndex is a vector index that accepts writes.
type DocumentIndex interface {
	VectorIndex
	DocumentWriter
}

// DocumentRepository provides full document storage.
type DocumentRepository interface {
	DocumentIndex

	// UpdateDocuments updates existing documents.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ScanDocuments returns up to limit documents with IDs greater than
	// afterID, in ascending ID order. Pass 0 to start from the beginning.
	ScanDocuments(ctx context.Context, afterID core.ID, limit int) ([]*core.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// MemoryRepository persists conversation memory per user and tier.
type MemoryRepository interface {
	// LoadMemories returns the ordered memories of a user in a tier.
	// A user without memories yields an empty slice and no error.
	LoadMemories(ctx context.Context, tier core.MemoryTier, userID string) ([]*core.MemoryItem, error)

	// SaveMemories replaces the memories of a user in a tier.
	SaveMemories(ctx context.Context, tier core.MemoryTier, userID string, items []*core.MemoryItem) error

	// DeleteMemories removes all memories of a user in a tier.
	// Deleting a user without memories is not an error.
	DeleteMemories(ctx context.Context, tier core.MemoryTier, userID string) error

	// MemoryUsers lists the users with stored memories in a tier.
	MemoryUsers(ctx context.Context, tier core.MemoryTier) ([]string, error)

	// Close releases resources held by the repository.
	Close() error
}
