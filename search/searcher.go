package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Searcher retrieves candidate passages by vector similarity.
type Searcher struct {
	index         storage.VectorIndex
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithMinSimilarity drops matches scoring below min.
// Default is 0, which keeps every match.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		if min < -1 || min > 1 {
			return fmt.Errorf("min similarity %v out of range [-1, 1]", min)
		}
		s.minSimilarity = min
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:    index,
		embedder: embedder,
		logger:   slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Retrieve returns up to k candidates for query, most similar first.
// When filter is non-empty only passages whose metadata matches every
// key/value pair are considered.
func (s *Searcher) Retrieve(ctx context.Context, query string, k int, filter map[string]any) ([]*core.Candidate, error) {
	return s.RetrieveWithMonitor(ctx, query, k, filter, nil)
}

// RetrieveWithMonitor is Retrieve with progress callbacks.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, query string, k int, filter map[string]any, monitor SearchMonitor) ([]*core.Candidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		return nil, ErrInvalidLimit
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	monitor.AfterEmbedding(len(embedding))

	matches, err := s.index.FindSimilar(ctx, embedding, s.minSimilarity, k, filter)
	if err != nil {
		s.logger.Error("error querying for similar passages", "err", err)
		return nil, fmt.Errorf("failed to query vector index: %w", err)
	}
	monitor.AfterVectorSearch(matches)

	candidates := make([]*core.Candidate, 0, len(matches))
	for _, match := range matches {
		doc := match.Document
		c, err := core.NewCandidate(doc.Content, doc.Metadata, float64(match.Score))
		if err != nil {
			s.logger.Warn("skipping stored passage", "id", doc.Id, "err", err)
			monitor.SkippedDocument(doc.Id, err)
			continue
		}
		candidates = append(candidates, c)
	}
	monitor.Finish(candidates)

	s.logger.Debug("retrieved candidates", "k", k, "matches", len(matches), "candidates", len(candidates))
	return candidates, nil
}
