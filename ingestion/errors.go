package ingestion

import "errors"

var (
	// ErrIndexRequired is returned when a document index is not provided.
	ErrIndexRequired = errors.New("document index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidPassage is returned when a passage lacks content or required metadata.
	ErrInvalidPassage = errors.New("invalid passage")

	// ErrEmbeddingMismatch is returned when the embedder returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")
)
