package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/answer"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/memory"
	"github.com/poiesic/recall/rerank"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/smartfilter"
	"github.com/poiesic/recall/sourcefilter"
)

const tracerName = "github.com/poiesic/recall/pipeline"

// Retriever returns candidate passages for a query, most similar first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, filter map[string]any) ([]*core.Candidate, error)
}

// Reranker reorders candidates by relevance to the query.
type Reranker interface {
	Rerank(query string, candidates []*core.Candidate) core.StageResult
}

// SmartFilter drops candidates that score low on combined relevance factors.
type SmartFilter interface {
	Filter(query string, candidates []*core.Candidate, text string, fctx *smartfilter.Context) core.StageResult
}

// SourceFilter keeps the candidates that support a generated answer.
type SourceFilter interface {
	Filter(ctx context.Context, text string, candidates []*core.Candidate) core.StageResult
}

// Validator applies the "no information" override.
type Validator interface {
	Check(text string) answer.Verdict
	Validate(text string, sources []*core.Candidate) (string, []*core.Candidate)
}

// Memory supplies conversation context and records finished exchanges.
type Memory interface {
	BuildContext(ctx context.Context, userID, question string, limit int, threshold float64) (*memory.Context, error)
	AddToSession(ctx context.Context, userID, question, text string, details map[string]any) (*core.MemoryItem, error)
}

var (
	_ Retriever    = (*search.Searcher)(nil)
	_ Reranker     = (*rerank.Engine)(nil)
	_ SmartFilter  = (*smartfilter.Engine)(nil)
	_ SourceFilter = (*sourcefilter.Engine)(nil)
	_ Validator    = (*answer.Validator)(nil)
	_ Memory       = (*memory.Manager)(nil)
)

// Request is one question to answer.
type Request struct {
	Query  string
	UserID string

	// K is the number of passages to retrieve. Zero uses the configured default.
	K int

	// Filter restricts retrieval to passages whose metadata matches.
	Filter map[string]any

	// Context steers the smart filter. When nil and memory is available,
	// a topic context is derived from relevant past questions.
	Context *smartfilter.Context
}

// Result is the outcome of a run.
type Result struct {
	RunID          string            `json:"run_id"`
	Answer         string            `json:"answer"`
	Sources        []*core.Candidate `json:"sources"`
	Cost           float64           `json:"cost"`
	ProcessingTime time.Duration     `json:"processing_time"`
	Stats          Stats             `json:"stats"`
	MemoryUsed     bool              `json:"memory_used"`
	NoInformation  bool              `json:"no_information"`
	Degraded       []StageFailure    `json:"degraded,omitempty"`
}

// Draft is the state between the two phases of a run: the candidates that
// reached generation and the answer drafted from them.
// A Draft must be finalized at most once.
type Draft struct {
	RunID      string
	Request    Request
	Candidates []*core.Candidate
	Answer     string
	Cost       float64

	// Memory is the conversation context given to the generator, or nil.
	Memory *memory.Context

	stats        Stats
	failures     []StageFailure
	retrievalErr error
	start        time.Time
}

// RetrievalFailed reports whether the run stopped at retrieval.
func (d *Draft) RetrievalFailed() bool {
	return d.retrievalErr != nil
}

// Orchestrator sequences the retrieval optimisation stages.
// It is safe for concurrent use.
type Orchestrator struct {
	cfg          Config
	retriever    Retriever
	generator    ai.Generator
	reranker     Reranker
	smartFilter  SmartFilter
	sourceFilter SourceFilter
	validator    Validator
	memory       Memory
	monitor      Monitor
	cost         ai.CostCalculator
	tracer       trace.Tracer
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithConfig sets the pipeline configuration.
// Default is DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.cfg = cfg
		return nil
	}
}

// WithReranker enables the rerank stage.
func WithReranker(r Reranker) Option {
	return func(o *Orchestrator) error {
		o.reranker = r
		return nil
	}
}

// WithSmartFilter enables the smart filter stage.
func WithSmartFilter(f SmartFilter) Option {
	return func(o *Orchestrator) error {
		o.smartFilter = f
		return nil
	}
}

// WithSourceFilter enables the source filter stage.
func WithSourceFilter(f SourceFilter) Option {
	return func(o *Orchestrator) error {
		o.sourceFilter = f
		return nil
	}
}

// WithValidator replaces the answer validator.
// Default is a strict validator with the default phrases.
func WithValidator(v Validator) Option {
	return func(o *Orchestrator) error {
		if v == nil {
			return fmt.Errorf("%w: validator cannot be nil", ErrInvalidConfig)
		}
		o.validator = v
		return nil
	}
}

// WithMemory enables conversation memory for requests carrying a user ID.
func WithMemory(m Memory) Option {
	return func(o *Orchestrator) error {
		o.memory = m
		return nil
	}
}

// WithMonitor sets the run observer.
func WithMonitor(m Monitor) Option {
	return func(o *Orchestrator) error {
		if m == nil {
			m = noopMonitor{}
		}
		o.monitor = m
		return nil
	}
}

// WithCostCalculator sets the token pricing.
// Default uses the prices of ai.DefaultConfig().
func WithCostCalculator(c ai.CostCalculator) Option {
	return func(o *Orchestrator) error {
		o.cost = c
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer.
// Default is the global tracer provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) error {
		if t != nil {
			o.tracer = t
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "pipeline")
		return nil
	}
}

// New creates an orchestrator. Stages without an engine are skipped.
func New(retriever Retriever, generator ai.Generator, opts ...Option) (*Orchestrator, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	validator, err := answer.NewValidator(answer.DefaultConfig())
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:       DefaultConfig(),
		retriever: retriever,
		generator: generator,
		validator: validator,
		monitor:   noopMonitor{},
		cost:      ai.NewCostCalculator(ai.DefaultConfig()),
		tracer:    otel.Tracer(tracerName),
		logger:    slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Config returns the pipeline configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Process answers a question. It fails only for an empty query; every
// stage failure is absorbed and reported in the result.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.Process")
	defer span.End()

	draft := o.Draft(ctx, req)
	span.SetAttributes(attribute.String("recall.run_id", draft.RunID))

	result := o.Finalize(ctx, draft)
	o.remember(ctx, draft, result)
	return result, nil
}

// Draft runs the first phase: memory context, retrieval, reranking, smart
// filtering and answer generation.
func (o *Orchestrator) Draft(ctx context.Context, req Request) *Draft {
	d := &Draft{
		RunID:   uuid.NewString(),
		Request: req,
		start:   time.Now(),
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.Draft", trace.WithAttributes(attribute.String("recall.run_id", d.RunID)))
	defer span.End()

	o.monitor.Start(d.RunID, req.Query)

	fctx := req.Context
	memoryText := ""
	if mc := o.recall(ctx, d); mc != nil && mc.HasMemory {
		d.Memory = mc
		memoryText = mc.Text
		if fctx == nil && o.cfg.DeriveFilterContext {
			fctx = &smartfilter.Context{TopicContext: pastQuestions(mc)}
		}
	}

	k := req.K
	if k <= 0 {
		k = o.cfg.SimilarityTopK
	}

	candidates, ok := o.retrieve(ctx, d, k)
	if !ok {
		d.Answer = o.cfg.RetrievalFailureAnswer
		d.Candidates = []*core.Candidate{}
		return d
	}

	candidates = o.stage(ctx, d, StageRerank, candidates, o.reranker != nil, func(_ context.Context, in []*core.Candidate) core.StageResult {
		return o.reranker.Rerank(req.Query, in)
	})
	candidates = o.stage(ctx, d, StageSmartFilter, candidates, o.smartFilter != nil, func(_ context.Context, in []*core.Candidate) core.StageResult {
		return o.smartFilter.Filter(req.Query, in, "", fctx)
	})
	d.Candidates = candidates

	o.generate(ctx, d, memoryText)
	return d
}

// Finalize runs the second phase: source filtering against the drafted
// answer and validation.
func (o *Orchestrator) Finalize(ctx context.Context, d *Draft) *Result {
	ctx, span := o.tracer.Start(ctx, "pipeline.Finalize", trace.WithAttributes(attribute.String("recall.run_id", d.RunID)))
	defer span.End()

	res := &Result{
		RunID:      d.RunID,
		Answer:     d.Answer,
		Sources:    []*core.Candidate{},
		Cost:       d.Cost,
		MemoryUsed: d.Memory != nil,
	}

	if d.retrievalErr == nil {
		sources := o.stage(ctx, d, StageSourceFilter, d.Candidates, o.sourceFilter != nil, func(ctx context.Context, in []*core.Candidate) core.StageResult {
			return o.sourceFilter.Filter(ctx, d.Answer, in)
		})

		var verdict answer.Verdict
		sources = o.stage(ctx, d, StageValidate, sources, true, func(_ context.Context, in []*core.Candidate) core.StageResult {
			verdict = o.validator.Check(d.Answer)
			_, kept := o.validator.Validate(d.Answer, in)
			return core.Ok(kept)
		})
		if sources != nil {
			res.Sources = sources
		}
		res.NoInformation = verdict.NoInformation
	}

	res.Stats = Stats{Stages: slices.Clone(d.stats.Stages)}
	res.Degraded = slices.Clone(d.failures)
	res.ProcessingTime = time.Since(d.start)

	o.monitor.Finish(d.RunID, res)
	o.logger.Info("processed query",
		"run_id", d.RunID,
		"sources", len(res.Sources),
		"degraded", len(res.Degraded),
		"no_information", res.NoInformation,
		"duration", res.ProcessingTime)
	return res
}

// EngineStats reports the configuration of every bound engine that exposes it.
func (o *Orchestrator) EngineStats() map[string]any {
	type statser interface{ Stats() map[string]any }

	out := map[string]any{}
	for name, engine := range map[string]any{
		StageRerank:       o.reranker,
		StageSmartFilter:  o.smartFilter,
		StageSourceFilter: o.sourceFilter,
	} {
		if s, ok := engine.(statser); ok {
			out[name] = s.Stats()
		}
	}
	return out
}

type stageFunc func(ctx context.Context, in []*core.Candidate) core.StageResult

// stage runs one candidate-list stage under the fail-open policy.
func (o *Orchestrator) stage(ctx context.Context, d *Draft, name string, in []*core.Candidate, enabled bool, fn stageFunc) []*core.Candidate {
	ctx, span := o.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	st := StageStats{Name: name, Input: len(in)}
	if !enabled {
		st.Output, st.Skipped = len(in), true
		o.record(span, d, st, nil)
		return in
	}

	start := time.Now()
	res := runSafely(ctx, in, fn)
	st.Duration = time.Since(start)
	st.Output = len(res.Candidates)
	if res.Degraded {
		st.Degraded, st.Reason = true, res.Reason.Error()
	}
	o.record(span, d, st, res.Reason)
	return res.Candidates
}

func runSafely(ctx context.Context, in []*core.Candidate, fn stageFunc) (res core.StageResult) {
	defer func() {
		if r := recover(); r != nil {
			res = core.Degraded(in, fmt.Errorf("%w: %w: %v", core.ErrScoring, ErrStagePanic, r))
		}
	}()

	res = fn(ctx, in)
	if res.Degraded {
		res.Candidates = in
		if res.Reason == nil {
			res.Reason = core.ErrScoring
		}
	} else {
		res.Reason = nil
	}
	return res
}

func (o *Orchestrator) retrieve(ctx context.Context, d *Draft, k int) ([]*core.Candidate, bool) {
	ctx, span := o.tracer.Start(ctx, "pipeline."+StageRetrieve, trace.WithAttributes(attribute.Int("recall.k", k)))
	defer span.End()

	start := time.Now()
	out, err := callWithTimeout(ctx, o.cfg.RetrievalTimeout, func(ctx context.Context) ([]*core.Candidate, error) {
		return o.retriever.Retrieve(ctx, d.Request.Query, k, d.Request.Filter)
	})
	st := StageStats{Name: StageRetrieve, Duration: time.Since(start)}

	if err != nil {
		d.retrievalErr = fmt.Errorf("%w: %w", core.ErrRetrieval, err)
		st.Degraded, st.Reason = true, d.retrievalErr.Error()
		o.record(span, d, st, d.retrievalErr)
		return nil, false
	}

	if out == nil {
		out = []*core.Candidate{}
	}
	st.Input, st.Output = len(out), len(out)
	o.record(span, d, st, nil)
	return out, true
}

func (o *Orchestrator) generate(ctx context.Context, d *Draft, memoryText string) {
	ctx, span := o.tracer.Start(ctx, "pipeline."+StageGenerate)
	defer span.End()

	st := StageStats{Name: StageGenerate, Input: len(d.Candidates), Output: len(d.Candidates)}
	if len(d.Candidates) == 0 {
		d.Answer = o.cfg.NoInformationAnswer
		st.Skipped = true
		o.record(span, d, st, nil)
		return
	}

	req := ai.GenerationRequest{
		Question:      d.Request.Query,
		Candidates:    d.Candidates,
		MemoryContext: memoryText,
	}

	start := time.Now()
	gen, err := callWithTimeout(ctx, o.cfg.GenerationTimeout, func(ctx context.Context) (*ai.Generation, error) {
		return o.generator.Generate(ctx, req)
	})
	if err == nil && (gen == nil || strings.TrimSpace(gen.Text) == "") {
		err = ai.ErrEmptyResponse
	}
	st.Duration = time.Since(start)

	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrGeneration, err)
		st.Degraded, st.Reason = true, err.Error()
		d.Answer = o.fallbackAnswer(d.Candidates)
		o.record(span, d, st, err)
		return
	}

	d.Answer = gen.Text
	d.Cost = o.cost.GenerationCost(promptText(req), gen)
	span.SetAttributes(
		attribute.Int("recall.input_tokens", gen.InputTokens),
		attribute.Int("recall.output_tokens", gen.OutputTokens),
	)
	o.record(span, d, st, nil)
}

func (o *Orchestrator) record(span trace.Span, d *Draft, st StageStats, err error) {
	d.stats.Stages = append(d.stats.Stages, st)
	span.SetAttributes(
		attribute.Int("recall.input", st.Input),
		attribute.Int("recall.output", st.Output),
	)

	if err != nil {
		d.failures = append(d.failures, StageFailure{Stage: st.Name, Reason: err.Error(), Err: err})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("stage failed, continuing", "run_id", d.RunID, "stage", st.Name, "err", err)
	} else {
		o.logger.Debug("stage finished", "run_id", d.RunID, "stage", st.Name,
			"input", st.Input, "output", st.Output, "skipped", st.Skipped, "duration", st.Duration)
	}

	o.monitor.StageFinished(d.RunID, st)
}

func (o *Orchestrator) recall(ctx context.Context, d *Draft) *memory.Context {
	if o.memory == nil || d.Request.UserID == "" || o.cfg.MemoryLimit == 0 {
		return nil
	}
	mc, err := o.memory.BuildContext(ctx, d.Request.UserID, d.Request.Query, o.cfg.MemoryLimit, o.cfg.RelevanceThreshold)
	if err != nil {
		o.logger.Warn("failed to build memory context", "run_id", d.RunID, "err", err)
		return nil
	}
	return mc
}

// remember stores the exchange in session memory. Failures are logged only.
func (o *Orchestrator) remember(ctx context.Context, d *Draft, res *Result) {
	if o.memory == nil || d.Request.UserID == "" || d.retrievalErr != nil {
		return
	}

	relevant := 0
	if d.Memory != nil {
		relevant = d.Memory.Count
	}
	details := map[string]any{
		"sources":           sourceSummaries(res.Sources),
		"cost":              res.Cost,
		"relevant_memories": relevant,
	}

	// The answer is already computed, so the write outlives a request deadline.
	if _, err := o.memory.AddToSession(context.WithoutCancel(ctx), d.Request.UserID, d.Request.Query, res.Answer, details); err != nil {
		o.logger.Warn("failed to remember exchange", "run_id", d.RunID, "err", err)
	}
}

func (o *Orchestrator) fallbackAnswer(candidates []*core.Candidate) string {
	n := min(o.cfg.FallbackCandidates, len(candidates))
	parts := make([]string, 0, n+1)
	if o.cfg.FallbackPrefix != "" {
		parts = append(parts, o.cfg.FallbackPrefix)
	}
	for _, c := range candidates[:n] {
		parts = append(parts, strings.TrimSpace(c.Content))
	}
	return strings.Join(parts, "\n\n")
}

func promptText(req ai.GenerationRequest) string {
	var b strings.Builder
	b.WriteString(req.MemoryContext)
	for _, c := range req.Candidates {
		b.WriteString(c.Content)
		b.WriteByte('\n')
	}
	b.WriteString(req.Question)
	return b.String()
}

func pastQuestions(mc *memory.Context) string {
	questions := make([]string, len(mc.Items))
	for i, item := range mc.Items {
		questions[i] = item.Question
	}
	return strings.Join(questions, " ")
}

func sourceSummaries(sources []*core.Candidate) []any {
	out := make([]any, len(sources))
	for i, s := range sources {
		out[i] = map[string]any{
			core.MetaDocumentName: s.DocumentName(),
			core.MetaPageNumber:   s.PageNumber(),
			core.MetaChunkType:    s.ChunkType(),
		}
	}
	return out
}
