package ai

import "errors"

var (
	// ErrEmbeddingHostRequired indicates the embedding host is missing.
	ErrEmbeddingHostRequired = errors.New("ai config: EmbeddingHost is required")

	// ErrGenerationHostRequired indicates the generation host is missing.
	ErrGenerationHostRequired = errors.New("ai config: GenerationHost is required")

	// ErrEmbeddingModelRequired indicates the embedding model is missing.
	ErrEmbeddingModelRequired = errors.New("ai config: EmbeddingModel is required")

	// ErrGenerationModelRequired indicates the generation model is missing.
	ErrGenerationModelRequired = errors.New("ai config: GenerationModel is required")

	// ErrInvalidPricing indicates a negative token price.
	ErrInvalidPricing = errors.New("ai config: token prices must not be negative")

	// ErrInvalidTemperature indicates a temperature outside [0,2].
	ErrInvalidTemperature = errors.New("ai config: Temperature must be between 0 and 2")

	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("model returned no choices")
)
