package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// embeddingProcessor embeds a batch of passages and stores them.
type embeddingProcessor struct {
	index    storage.DocumentWriter
	embedder ai.Embedder
	logger   *slog.Logger
}

func newEmbeddingProcessor(index storage.DocumentWriter, embedder ai.Embedder, logger *slog.Logger) *embeddingProcessor {
	return &embeddingProcessor{
		index:    index,
		embedder: embedder,
		logger:   logger.With("processor", "embeddings"),
	}
}

// process embeds passages and writes them as documents.
func (ep *embeddingProcessor) process(ctx context.Context, passages []Passage) (int, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}

	ep.logger.Debug("generating embeddings for passages", "passages", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return 0, err
	}

	if len(embeddings) != len(passages) {
		return 0, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(passages), len(embeddings))
	}

	docs := make([]*core.Document, len(passages))
	for i, p := range passages {
		docs[i] = &core.Document{
			Id:       core.PassageID(p.Content, p.Metadata),
			Content:  p.Content,
			Metadata: p.Metadata,
			Vector:   embeddings[i],
		}
	}

	added, err := ep.index.AddDocuments(ctx, docs...)
	if err != nil {
		return 0, err
	}
	return len(added), nil
}
