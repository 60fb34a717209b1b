package rerank

import "errors"

var (
	// ErrUnknownMethod is returned for a reranking method the engine does not implement.
	ErrUnknownMethod = errors.New("unknown reranking method")

	// ErrInvalidConfig is returned when the engine configuration is out of range.
	ErrInvalidConfig = errors.New("invalid reranking config")
)
