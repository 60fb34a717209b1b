package search

import "github.com/poiesic/recall/core"

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(dimensions int)
	AfterVectorSearch(matches []*core.DocumentMatch)
	SkippedDocument(id core.ID, err error)
	Finish(candidates []*core.Candidate)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterEmbedding(_ int)                      {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.DocumentMatch) {}
func (n *noopMonitor) SkippedDocument(_ core.ID, _ error)        {}
func (n *noopMonitor) Finish(_ []*core.Candidate)                {}
