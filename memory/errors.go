package memory

import "errors"

var (
	// ErrRepositoryRequired indicates a Manager was built without storage.
	ErrRepositoryRequired = errors.New("memory repository is required")

	// ErrInvalidConfig indicates invalid memory settings.
	ErrInvalidConfig = errors.New("invalid memory configuration")

	// ErrMemoryNotFound indicates no memory has the requested ID.
	ErrMemoryNotFound = errors.New("memory not found")
)
