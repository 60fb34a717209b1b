package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/recall/ai"
)

// NoInformation is the default reply when a request carries no passages.
const NoInformation = "No relevant information was found in the provided documents."

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, echoes the first passage's content.
	GenerateFunc func(ctx context.Context, req ai.GenerationRequest) (*ai.Generation, error)

	callCount atomic.Int64
	last      atomic.Pointer[ai.GenerationRequest]
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records the request and returns a canned answer.
func (m *MockGenerator) Generate(ctx context.Context, req ai.GenerationRequest) (*ai.Generation, error) {
	m.callCount.Add(1)
	m.last.Store(&req)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := NoInformation
	if len(req.Candidates) > 0 {
		text = req.Candidates[0].Content
	}
	return &ai.Generation{
		Text:         text,
		Model:        "mock",
		InputTokens:  ai.EstimateTokens(req.Question),
		OutputTokens: ai.EstimateTokens(text),
	}, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// LastRequest returns the most recent request, or nil.
func (m *MockGenerator) LastRequest() *ai.GenerationRequest {
	return m.last.Load()
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount.Store(0)
	m.last.Store(nil)
	m.GenerateFunc = nil
}
