package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/storage"
)

// DefaultBatchSize is the number of passages embedded per request.
const DefaultBatchSize = 32

// Indexer embeds passages concurrently and writes them to a document index.
type Indexer struct {
	pool      *ants.Pool
	proc      *embeddingProcessor
	batchSize int
	logger    *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		ix.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of passages per embedding request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		ix.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger.With("component", "indexer")
		return nil
	}
}

// NewIndexer creates a passage indexer.
func NewIndexer(index storage.DocumentWriter, embedder ai.Embedder, opts ...Option) (*Indexer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		pool:      pool,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "indexer"),
	}

	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}

	// Created after options so it picks up the final logger.
	ix.proc = newEmbeddingProcessor(index, embedder, ix.logger)
	return ix, nil
}

// Index validates, embeds and stores passages, returning how many were
// written. Batches run concurrently; the first batch error is returned
// after every submitted batch has finished.
func (ix *Indexer) Index(ctx context.Context, passages []Passage) (int, error) {
	for _, p := range passages {
		if err := p.Validate(); err != nil {
			return 0, err
		}
	}

	var (
		wg       sync.WaitGroup
		written  atomic.Int64
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

	for start := 0; start < len(passages); start += ix.batchSize {
		batch := passages[start:min(start+ix.batchSize, len(passages))]
		wg.Add(1)
		err := ix.pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			n, err := ix.proc.process(ctx, batch)
			if err != nil {
				fail(err)
				return
			}
			written.Add(int64(n))
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	ix.logger.Info("indexed passages", "passages", len(passages), "written", written.Load())
	return int(written.Load()), firstErr
}

// Release releases the worker pool.
// The indexer should not be used after calling Release.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}
