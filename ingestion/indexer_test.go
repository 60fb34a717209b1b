package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage/badger"
)

func setup(t *testing.T) *badger.DocumentRepository {
	docs, mems, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		mems.Close()
		docs.Close()
		backend.Close()
	})
	return docs
}

func passage(content string, page int) Passage {
	return Passage{
		Content: content,
		Metadata: map[string]any{
			core.MetaDocumentName: "annual.pdf",
			core.MetaPageNumber:   page,
			core.MetaChunkType:    "text",
		},
	}
}

func TestReadPassages(t *testing.T) {
	t.Run("valid lines", func(t *testing.T) {
		input := `{"content":"2024年营收80亿元","metadata":{"document_name":"annual.pdf","page_number":3,"chunk_type":"text"}}

{"content":"chart","metadata":{"document_name":"annual.pdf","page_number":4,"chunk_type":"image","image_ids":["0123456789abcdef0123456789abcdef"]}}
`
		got, err := ReadPassages(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2024年营收80亿元", got[0].Content)
		assert.Equal(t, "image", got[1].Metadata[core.MetaChunkType])
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ReadPassages(strings.NewReader("{not json}\n"))
		assert.ErrorContains(t, err, "line 1")
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := ReadPassages(strings.NewReader(`{"content":"x","metadata":{"document_name":"a.pdf"}}`))
		assert.ErrorIs(t, err, ErrInvalidPassage)
		assert.ErrorIs(t, err, core.ErrMissingMetadata)
	})
}

func TestNewIndexer(t *testing.T) {
	repo := setup(t)

	_, err := NewIndexer(nil, mock.NewMockEmbedder())
	assert.Equal(t, ErrIndexRequired, err)

	_, err = NewIndexer(repo, nil)
	assert.Equal(t, ErrEmbedderRequired, err)

	ix, err := NewIndexer(repo, mock.NewMockEmbedder(), WithPoolSize(0), WithBatchSize(0), WithLogger(nil))
	require.NoError(t, err)
	defer ix.Release()
	assert.Equal(t, 1, ix.batchSize)
}

func TestIndex(t *testing.T) {
	repo := setup(t)
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 8
	ctx := context.Background()

	ix, err := NewIndexer(repo, embedder, WithPoolSize(2), WithBatchSize(2))
	require.NoError(t, err)
	defer ix.Release()

	in := []Passage{passage("营收", 1), passage("营收", 1), passage("利润", 2), passage("毛利率", 3), passage("产能", 4)}
	n, err := ix.Index(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, embedder.CallCount())

	count, err := repo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count, "re-indexed passage replaces the stored one")

	doc, err := repo.GetDocument(ctx, core.PassageID("毛利率", in[3].Metadata))
	require.NoError(t, err)
	assert.Equal(t, "毛利率", doc.Content)
	assert.Len(t, doc.Vector, 8)
}

func TestIndex_InvalidPassage(t *testing.T) {
	repo := setup(t)
	embedder := mock.NewMockEmbedder()
	ix, err := NewIndexer(repo, embedder)
	require.NoError(t, err)
	defer ix.Release()

	_, err = ix.Index(context.Background(), []Passage{passage("ok", 1), {Content: " "}})
	assert.ErrorIs(t, err, ErrInvalidPassage)
	assert.Zero(t, embedder.CallCount())
}

func TestIndex_EmbeddingErrors(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	t.Run("embedder failure on one batch", func(t *testing.T) {
		var calls atomic.Int32
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			if calls.Add(1) == 1 {
				return nil, errors.New("rate limited")
			}
			out := make([][]float32, len(texts))
			for i, text := range texts {
				out[i] = mock.DeterministicVector(text, 4)
			}
			return out, nil
		}
		ix, err := NewIndexer(repo, embedder, WithPoolSize(1), WithBatchSize(1))
		require.NoError(t, err)
		defer ix.Release()

		n, err := ix.Index(ctx, []Passage{passage("a", 1), passage("b", 2)})
		assert.ErrorContains(t, err, "rate limited")
		assert.Equal(t, 1, n)
	})

	t.Run("vector count mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}
		ix, err := NewIndexer(repo, embedder)
		require.NoError(t, err)
		defer ix.Release()

		_, err = ix.Index(ctx, []Passage{passage("a", 1), passage("b", 2)})
		assert.ErrorIs(t, err, ErrEmbeddingMismatch)
	})
}
