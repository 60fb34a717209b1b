package pipeline

import "errors"

var (
	// ErrRetrieverRequired is returned when no retriever is bound.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when no answer generator is bound.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrEmptyQuery is returned by Process for a blank query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidConfig is returned when pipeline settings are out of range.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrStagePanic wraps a panic recovered inside a stage.
	ErrStagePanic = errors.New("stage panicked")
)
