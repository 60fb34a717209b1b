package rerank

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
)

// Engine scores and reorders candidates against a query.
// It is safe for concurrent use.
type Engine struct {
	cfg        Config
	vectorizer *lexical.CharVectorizer
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "rerank")
		return nil
	}
}

// NewEngine creates a reranking engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		vectorizer: lexical.NewCharVectorizer(cfg.MaxFeatures),
		logger:     slog.Default().With("component", "rerank"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Rerank scores candidates with the configured method.
// Disabled engines and empty inputs return the candidates unchanged.
func (e *Engine) Rerank(query string, candidates []*core.Candidate) core.StageResult {
	if !e.cfg.Enabled {
		return core.Ok(candidates)
	}
	return e.RerankWith(query, candidates, e.cfg.Params())
}

// RerankWith scores candidates with explicit parameters.
func (e *Engine) RerankWith(query string, candidates []*core.Candidate, p Params) core.StageResult {
	if len(candidates) == 0 {
		return core.Ok(candidates)
	}

	out := core.CloneAll(candidates)

	switch p.Method {
	case MethodSemantic:
		if err := e.applySemantic(query, out); err != nil {
			return e.degrade(candidates, err)
		}
		for _, c := range out {
			c.RerankScore = core.Float(*c.SemanticScore)
		}
		sortByRerank(out)

	case MethodKeyword:
		e.applyKeyword(query, out)
		for _, c := range out {
			c.RerankScore = core.Float(*c.KeywordScore)
		}
		sortByRerank(out)

	case MethodHybrid:
		if err := e.applySemantic(query, out); err != nil {
			return e.degrade(candidates, err)
		}
		e.applyKeyword(query, out)
		for _, c := range out {
			c.RerankScore = core.Float(p.SemanticWeight*(*c.SemanticScore) + p.KeywordWeight*(*c.KeywordScore))
		}
		sortByRerank(out)
		out = slices.DeleteFunc(out, func(c *core.Candidate) bool {
			return *c.RerankScore < p.Threshold
		})

	default:
		e.logger.Warn("unknown reranking method, passing candidates through", "method", p.Method)
		return core.Degraded(candidates, fmt.Errorf("%w: %w: %q", core.ErrScoring, ErrUnknownMethod, p.Method))
	}

	e.logger.Debug("reranked candidates", "method", p.Method, "in", len(candidates), "out", len(out))
	return core.Ok(out)
}

// Stats reports the engine configuration.
func (e *Engine) Stats() map[string]any {
	return map[string]any{
		"enabled":                  e.cfg.Enabled,
		"method":                   string(e.cfg.Method),
		"semantic_weight":          e.cfg.SemanticWeight,
		"keyword_weight":           e.cfg.KeywordWeight,
		"min_similarity_threshold": e.cfg.Threshold,
	}
}

func (e *Engine) degrade(candidates []*core.Candidate, err error) core.StageResult {
	e.logger.Warn("reranking failed, passing candidates through", "err", err)
	return core.Degraded(candidates, fmt.Errorf("%w: %w", core.ErrScoring, err))
}

// applySemantic sets SemanticScore on each candidate to the TF-IDF cosine
// similarity between the query and the candidate content.
func (e *Engine) applySemantic(query string, candidates []*core.Candidate) error {
	docs := make([]string, 0, len(candidates)+1)
	docs = append(docs, query)
	for _, c := range candidates {
		docs = append(docs, c.Content)
	}

	vectors, err := e.vectorizer.FitTransform(docs)
	if err != nil {
		return err
	}

	for i, c := range candidates {
		c.SemanticScore = core.Float(lexical.Cosine(vectors[0], vectors[i+1]))
	}
	return nil
}

func (e *Engine) applyKeyword(query string, candidates []*core.Candidate) {
	keywords := QueryKeywords(query)
	for _, c := range candidates {
		c.KeywordScore = core.Float(KeywordScore(keywords, c.Content))
	}
}

// QueryKeywords extracts the distinct keywords of a query. When every token
// is filtered out, the first three multi-rune CJK runs are used instead.
func QueryKeywords(query string) []string {
	keywords := lexical.Dedupe(lexical.Keywords(query, lexical.BaseStopWords))
	if len(keywords) == 0 {
		keywords = lexical.Dedupe(lexical.CJKRuns(query, 3))
	}
	return keywords
}

// KeywordScore weighs keyword coverage at 0.7 and occurrence density at 0.3.
func KeywordScore(keywords []string, content string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	lower := strings.ToLower(content)
	matched, occurrences := 0, 0
	for _, k := range keywords {
		if n := strings.Count(lower, k); n > 0 {
			matched++
			occurrences += n
		}
	}

	n := float64(len(keywords))
	coverage := float64(matched) / n
	density := min(float64(occurrences)/(n*5), 1)
	return coverage*0.7 + density*0.3
}

func sortByRerank(candidates []*core.Candidate) {
	slices.SortStableFunc(candidates, func(a, b *core.Candidate) int {
		return cmp.Compare(*b.RerankScore, *a.RerankScore)
	})
}
