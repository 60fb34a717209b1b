package ai

import (
	"context"

	"github.com/poiesic/recall/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator drafts an answer grounded in retrieved passages.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate answers req.Question from req.Candidates. When the passages
	// do not contain the answer, the generated text should say so using
	// one of the configured "no information" phrasings.
	Generate(ctx context.Context, req GenerationRequest) (*Generation, error)
}

// GenerationRequest is the input of one generation call.
type GenerationRequest struct {
	Question   string
	Candidates []*core.Candidate

	// MemoryContext holds formatted prior exchanges, or is empty.
	MemoryContext string
}

// Generation is a generated answer with its token usage.
// Token counts are zero when the service does not report them.
type Generation struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	Close() error
}
