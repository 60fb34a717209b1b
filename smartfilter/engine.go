package smartfilter

import (
	"cmp"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
)

// Engine applies multidimensional relevance filtering.
// It is safe for concurrent use; Release must be called when done.
type Engine struct {
	cfg    Config
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithPoolSize sets the worker pool size for concurrent scoring.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "smartfilter")
		return nil
	}
}

// NewEngine creates a smart filter engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolSize := cfg.PoolSize
	if poolSize < 1 {
		poolSize = runtime.NumCPU() / 2
	}
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		pool:   pool,
		logger: slog.Default().With("component", "smartfilter"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Release()
			return nil, err
		}
	}

	return e, nil
}

// Release releases the worker pool.
// The engine should not be used after calling Release.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Filter scores every candidate, keeps those whose final score reaches the
// content relevance threshold, and returns at most MaxResults of them in
// descending score order. answer and fctx are optional.
func (e *Engine) Filter(query string, candidates []*core.Candidate, answer string, fctx *Context) core.StageResult {
	if !e.cfg.Enabled || len(candidates) == 0 {
		return core.Ok(candidates)
	}

	req := e.prepare(query, answer, fctx)
	out := core.CloneAll(candidates)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, c := range out {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("panic scoring candidate %d: %v", c.Id, r))
				}
			}()
			scores := req.score(c)
			c.SmartFilter = &scores
		})
		if err != nil {
			wg.Done()
			fail(err)
		}
	}
	wg.Wait()

	if firstErr != nil {
		e.logger.Warn("smart filtering failed, passing candidates through", "err", firstErr)
		return core.Degraded(candidates, fmt.Errorf("%w: %w", core.ErrScoring, firstErr))
	}

	slices.SortStableFunc(out, func(a, b *core.Candidate) int {
		return cmp.Compare(b.SmartFilter.Final, a.SmartFilter.Final)
	})
	out = slices.DeleteFunc(out, func(c *core.Candidate) bool {
		return c.SmartFilter.Final < e.cfg.ContentThreshold
	})
	if len(out) > e.cfg.MaxResults {
		out = out[:e.cfg.MaxResults]
	}

	e.logger.Debug("smart filtered candidates", "in", len(candidates), "out", len(out))
	return core.Ok(out)
}

// Score computes the relevance factors of a single candidate.
func (e *Engine) Score(query string, c *core.Candidate, answer string, fctx *Context) core.SmartFilterScores {
	return e.prepare(query, answer, fctx).score(c)
}

// Stats reports the engine configuration.
func (e *Engine) Stats() map[string]any {
	return map[string]any{
		"enabled":                       e.cfg.Enabled,
		"semantic_similarity_threshold": e.cfg.SemanticThreshold,
		"content_relevance_threshold":   e.cfg.ContentThreshold,
		"max_filtered_results":          e.cfg.MaxResults,
		"pool_size":                     e.pool.Cap(),
	}
}

// request holds the query-side analysis shared by every candidate.
type request struct {
	query         string
	queryKeywords map[string]struct{}
	queryPhrases  map[string]struct{}
	queryEntities map[string]struct{}
	queryIntent   Intent
	answerIntent  *Intent
	fctx          *Context
	semThreshold  float64
}

func (e *Engine) prepare(query, answer string, fctx *Context) *request {
	keywords := lexical.Keywords(query, lexical.ExtendedStopWords)
	r := &request{
		query:         query,
		queryKeywords: lexical.Set(keywords),
		queryPhrases:  lexical.Set(lexical.Phrases(keywords)),
		queryEntities: lexical.Set(Entities(query)),
		queryIntent:   AnalyzeIntent(query),
		fctx:          fctx,
		semThreshold:  e.cfg.SemanticThreshold,
	}
	if strings.TrimSpace(answer) != "" {
		ai := AnalyzeIntent(answer)
		r.answerIntent = &ai
	}
	return r
}

func (r *request) score(c *core.Candidate) core.SmartFilterScores {
	s := core.SmartFilterScores{
		Content:  r.content(c.Content),
		Semantic: r.semantic(c.Content),
		Context:  contextRelevance(c, r.fctx),
		Intent:   r.intent(c.Content),
	}
	s.Final = ContentWeight*s.Content + SemanticWeight*s.Semantic + ContextWeight*s.Context + IntentWeight*s.Intent
	return s
}

func (r *request) content(content string) float64 {
	if strings.TrimSpace(r.query) == "" || strings.TrimSpace(content) == "" {
		return 0
	}
	keywords := lexical.Keywords(content, lexical.ExtendedStopWords)
	kw := lexical.OverlapRatio(r.queryKeywords, lexical.Set(keywords))
	phrase := lexical.Jaccard(r.queryPhrases, lexical.Set(lexical.Phrases(keywords)))
	entity := lexical.Jaccard(r.queryEntities, lexical.Set(Entities(content)))
	return 0.4*kw + 0.4*phrase + 0.2*entity
}

func (r *request) semantic(content string) float64 {
	if r.query == "" || content == "" {
		return 0
	}
	ratio := lexical.SequenceRatio(r.query, content)
	if ratio < r.semThreshold {
		return 0
	}
	return ratio
}

func (r *request) intent(content string) float64 {
	doc := AnalyzeIntent(content)
	score := MatchIntent(r.queryIntent, doc)
	if r.answerIntent == nil {
		return score
	}
	return (score + MatchIntent(*r.answerIntent, doc)) / 2
}

// contextRelevance averages the time, topic and preference sub-signals
// present in fctx, defaulting to 0.5.
func contextRelevance(c *core.Candidate, fctx *Context) float64 {
	if fctx == nil {
		return 0.5
	}

	var score float64
	factors := 0

	if fctx.TimeContext != "" {
		if strings.Contains(c.Content, fctx.TimeContext) {
			score++
		}
		factors++
	}

	if fctx.TopicContext != "" {
		score += topicRelevance(c.Content, fctx.TopicContext)
		factors++
	}

	if fctx.UserPreferences != nil {
		score += preferenceRelevance(c, fctx.UserPreferences)
		factors++
	}

	if factors == 0 {
		return 0.5
	}
	return score / float64(factors)
}

func topicRelevance(content, topic string) float64 {
	topicKeywords := lexical.Set(lexical.Keywords(topic, lexical.ExtendedStopWords))
	if len(topicKeywords) == 0 {
		return 0.5
	}
	return lexical.OverlapRatio(topicKeywords, lexical.Set(lexical.Keywords(content, lexical.ExtendedStopWords)))
}

func preferenceRelevance(c *core.Candidate, prefs []string) float64 {
	lower := strings.ToLower(c.Content)
	matched, total := 0, 0
	for _, p := range prefs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		total++
		if strings.Contains(lower, p) || strings.EqualFold(p, c.ChunkType()) {
			matched++
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(matched) / float64(total)
}
