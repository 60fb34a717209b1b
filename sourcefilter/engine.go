package sourcefilter

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
)

var identifierPattern = regexp.MustCompile(`[a-f0-9]{32}`)

// Engine filters candidates against a generated answer.
// It is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger
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
		e.logger = logger.With("component", "sourcefilter")
		return nil
	}
}

// NewEngine creates a source filter engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		logger: slog.Default().With("component", "sourcefilter"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Filter keeps the candidates whose relevance to answer reaches the minimum
// relevance score, ordered by descending relevance. A blank answer carries
// no evidence, so the candidates are returned unchanged.
func (e *Engine) Filter(ctx context.Context, answer string, candidates []*core.Candidate) core.StageResult {
	if !e.cfg.Enabled || len(candidates) == 0 || strings.TrimSpace(answer) == "" {
		return core.Ok(candidates)
	}

	a := e.analyze(answer)
	out := core.CloneAll(candidates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, c := range out {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic scoring candidate %d: %v", c.Id, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			c.SourceRelevance = core.Float(a.relevance(c))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Warn("source filtering failed, passing candidates through", "err", err)
		return core.Degraded(candidates, fmt.Errorf("%w: %w", core.ErrScoring, err))
	}

	out = slices.DeleteFunc(out, func(c *core.Candidate) bool {
		return *c.SourceRelevance < e.cfg.MinRelevance
	})
	slices.SortStableFunc(out, func(a, b *core.Candidate) int {
		return cmp.Compare(*b.SourceRelevance, *a.SourceRelevance)
	})

	e.logger.Debug("filtered sources", "in", len(candidates), "out", len(out))
	return core.Ok(out)
}

// Relevance scores a single candidate against answer.
func (e *Engine) Relevance(answer string, c *core.Candidate) float64 {
	return e.analyze(answer).relevance(c)
}

// Stats reports the engine configuration.
func (e *Engine) Stats() map[string]any {
	return map[string]any{
		"enabled":                     e.cfg.Enabled,
		"min_relevance_score":         e.cfg.MinRelevance,
		"enable_keyword_matching":     e.cfg.KeywordMatching,
		"enable_identifier_matching":  e.cfg.IdentifierMatching,
		"enable_similarity_filtering": e.cfg.SimilarityMatching,
	}
}

type analysis struct {
	cfg         Config
	answer      string
	keywords    []string
	keywordSet  map[string]struct{}
	frequencies map[string]int
	identifiers map[string]struct{}
}

func (e *Engine) analyze(answer string) *analysis {
	keywords := lexical.Keywords(answer, lexical.ExtendedStopWords)
	return &analysis{
		cfg:         e.cfg,
		answer:      answer,
		keywords:    keywords,
		keywordSet:  lexical.Set(keywords),
		frequencies: lexical.Frequencies(keywords),
		identifiers: lexical.Set(Identifiers(answer)),
	}
}

func (a *analysis) relevance(c *core.Candidate) float64 {
	var score float64
	enabled := 0

	if a.cfg.KeywordMatching {
		score += a.keywordRelevance(c.Content)
		enabled++
	}
	if a.cfg.IdentifierMatching {
		score += a.identifierRelevance(c)
		enabled++
	}
	if a.cfg.SimilarityMatching {
		score += similarity(a.answer, c.Content)
		enabled++
	}

	if enabled == 0 {
		return 0.5
	}
	return score / float64(enabled)
}

// keywordRelevance weighs keyword-set Jaccard at 0.7 and shared keyword
// frequency at 0.3.
func (a *analysis) keywordRelevance(content string) float64 {
	sourceKeywords := lexical.Keywords(content, lexical.ExtendedStopWords)
	if len(a.keywords) == 0 || len(sourceKeywords) == 0 {
		return 0
	}

	sourceSet := lexical.Set(sourceKeywords)
	jaccard := lexical.Jaccard(a.keywordSet, sourceSet)

	sourceFreq := lexical.Frequencies(sourceKeywords)
	shared := 0
	for k := range lexical.Intersection(a.keywordSet, sourceSet) {
		shared += min(a.frequencies[k], sourceFreq[k])
	}
	frequency := min(float64(shared)/float64(len(a.keywords)*2), 1)

	return 0.7*jaccard + 0.3*frequency
}

func (a *analysis) identifierRelevance(c *core.Candidate) float64 {
	if len(a.identifiers) == 0 {
		return 0
	}
	attached := lexical.Set(CandidateIdentifiers(c))
	if len(attached) == 0 {
		return 0
	}
	return lexical.OverlapRatio(a.identifiers, attached)
}

func similarity(answer, content string) float64 {
	if answer == "" || content == "" {
		return 0
	}
	return lexical.SequenceRatio(answer, content)
}

// Identifiers extracts 32-character hex identifiers from text.
func Identifiers(text string) []string {
	return identifierPattern.FindAllString(strings.ToLower(text), -1)
}

// CandidateIdentifiers collects the identifiers in a candidate's content and
// its image_ids metadata.
func CandidateIdentifiers(c *core.Candidate) []string {
	ids := Identifiers(c.Content)
	switch v := c.Metadata[core.MetaImageIDs].(type) {
	case string:
		ids = append(ids, Identifiers(v)...)
	case []string:
		for _, s := range v {
			ids = append(ids, strings.ToLower(s))
		}
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok {
				ids = append(ids, strings.ToLower(str))
			}
		}
	}
	return ids
}
