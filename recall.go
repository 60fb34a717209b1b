// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package recall wires storage, AI services and the optimisation stages
// into a question answering engine.
package recall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/answer"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/memory"
	"github.com/poiesic/recall/pipeline"
	"github.com/poiesic/recall/reembed"
	"github.com/poiesic/recall/rerank"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/smartfilter"
	"github.com/poiesic/recall/sourcefilter"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/storage/file"
	"github.com/poiesic/recall/storage/qdrant"
)

// ErrUnsupportedBackend is returned for operations the configured vector
// backend cannot serve.
var ErrUnsupportedBackend = errors.New("operation not supported by vector backend")

// Engine owns every component of a recall deployment.
type Engine struct {
	cfg         *config.Config
	backend     *badger.Backend
	docs        *badger.DocumentRepository
	memories    *badger.MemoryRepository
	index       storage.DocumentIndex
	qdrant      *qdrant.Index
	provider    ai.AIProvider
	smartFilter *smartfilter.Engine
	memory      *memory.Manager
	pipeline    *pipeline.Orchestrator
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions) error

type engineOptions struct {
	provider ai.AIProvider
	monitor  pipeline.Monitor
	tracer   trace.Tracer
	logger   *slog.Logger
}

// WithProvider supplies the AI services instead of connecting to the
// configured OpenAI-compatible hosts. The engine closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) error {
		o.provider = provider
		return nil
	}
}

// WithMonitor observes pipeline runs.
func WithMonitor(m pipeline.Monitor) Option {
	return func(o *engineOptions) error {
		o.monitor = m
		return nil
	}
}

// WithTracer sets the tracer used for pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *engineOptions) error {
		o.tracer = t
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) error {
		o.logger = logger
		return nil
	}
}

// Open builds an engine from cfg.
func Open(cfg *config.Config, opts ...Option) (*Engine, error) {
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, logger: logger.With("component", "engine")}
	ok := false
	defer func() {
		if !ok {
			e.Close()
		}
	}()

	backend, err := badger.OpenBackend(cfg.Storage.Path, cfg.Storage.InMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	e.backend = backend
	e.docs = badger.NewDocumentRepository(backend)
	e.memories = badger.NewMemoryRepository(backend)
	e.index = e.docs

	if cfg.Storage.VectorBackend == config.BackendQdrant {
		idx, err := qdrant.New(cfg.Storage.Qdrant.Addr, cfg.Storage.Qdrant.Collection, qdrant.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		e.qdrant = idx
		e.index = idx
	}

	e.provider = options.provider
	if e.provider == nil {
		aiCfg := cfg.AI
		provider, err := openai.NewProvider(&aiCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create AI provider: %w", err)
		}
		e.provider = provider
	}

	searcher, err := search.NewSearcher(e.index, e.provider.Embedder(),
		search.WithMinSimilarity(float32(cfg.Storage.MinSimilarity)),
		search.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	reranker, err := rerank.NewEngine(cfg.Reranking, rerank.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	e.smartFilter, err = smartfilter.NewEngine(cfg.SmartFilter, smartfilter.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	sources, err := sourcefilter.NewEngine(cfg.SourceFilter, sourcefilter.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	validator, err := answer.NewValidator(cfg.Validator, answer.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	e.memory, err = memory.NewManager(e.memories, cfg.Memory, memory.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	e.pipeline, err = pipeline.New(searcher, e.provider.Generator(),
		pipeline.WithConfig(cfg.Pipeline),
		pipeline.WithReranker(reranker),
		pipeline.WithSmartFilter(e.smartFilter),
		pipeline.WithSourceFilter(sources),
		pipeline.WithValidator(validator),
		pipeline.WithMemory(e.memory),
		pipeline.WithMonitor(options.monitor),
		pipeline.WithCostCalculator(ai.NewCostCalculator(&cfg.AI)),
		pipeline.WithTracer(options.tracer),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	ok = true
	return e, nil
}

// Close releases every component. It is safe to call on a partially
// opened engine.
func (e *Engine) Close() error {
	var errs []error
	if e.smartFilter != nil {
		e.smartFilter.Release()
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.qdrant != nil {
		if err := e.qdrant.Close(); err != nil {
			e.logger.Error("error closing qdrant index", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Pipeline returns the orchestrator.
func (e *Engine) Pipeline() *pipeline.Orchestrator {
	return e.pipeline
}

// Memory returns the conversation memory manager.
func (e *Engine) Memory() *memory.Manager {
	return e.memory
}

// Process answers a question.
func (e *Engine) Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	return e.pipeline.Process(ctx, req)
}

// Index embeds and stores passages in the vector index.
func (e *Engine) Index(ctx context.Context, passages []ingestion.Passage, opts ...ingestion.Option) (int, error) {
	if e.qdrant != nil && len(passages) > 0 {
		probe, err := e.provider.Embedder().EmbedText(ctx, passages[0].Content)
		if err != nil {
			return 0, fmt.Errorf("failed to probe embedding dimensions: %w", err)
		}
		if err := e.qdrant.EnsureCollection(ctx, len(probe)); err != nil {
			return 0, err
		}
	}

	indexer, err := ingestion.NewIndexer(e.index, e.provider.Embedder(), opts...)
	if err != nil {
		return 0, err
	}
	defer indexer.Release()
	return indexer.Index(ctx, passages)
}

// DocumentCount returns the number of stored passages.
func (e *Engine) DocumentCount(ctx context.Context) (int, error) {
	if e.qdrant != nil {
		return 0, ErrUnsupportedBackend
	}
	return e.docs.CountDocuments(ctx)
}

// Reembed recomputes every stored embedding with embedder. A nil embedder
// uses the engine's own.
func (e *Engine) Reembed(ctx context.Context, embedder ai.Embedder, cfg *reembed.Config, progress io.Writer) (int, error) {
	if e.qdrant != nil {
		return 0, ErrUnsupportedBackend
	}
	if embedder == nil {
		embedder = e.provider.Embedder()
	}
	r, err := reembed.NewReembedder(e.docs, embedder, cfg, progress)
	if err != nil {
		return 0, err
	}
	return r.Run(ctx)
}

// ExportMemory writes every user's memories to session_memory.json and
// user_memory.json under dir.
func (e *Engine) ExportMemory(ctx context.Context, dir string) (int, error) {
	dst, err := file.NewMemoryRepository(dir)
	if err != nil {
		return 0, err
	}
	defer dst.Close()
	return dst.Export(ctx, e.memories)
}
