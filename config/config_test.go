package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/rerank"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	}
}

func TestLoad_OverridesOverDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "secret")

	path := writeFile(t, `
reranking:
  reranking_method: keyword
  min_similarity_threshold: 0.4
pipeline:
  similarity_top_k: 8
  retrieval_timeout: 3s
memory:
  cache_ttl: 0s
storage:
  in_memory: true
  path: ""
ai:
  generation_host: http://ollama:11434
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, rerank.MethodKeyword, cfg.Reranking.Method)
	assert.Equal(t, 0.4, cfg.Reranking.Threshold)
	assert.Equal(t, 0.7, cfg.Reranking.SemanticWeight)
	assert.Equal(t, 8, cfg.Pipeline.SimilarityTopK)
	assert.Equal(t, 3*time.Second, cfg.Pipeline.RetrievalTimeout)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.GenerationTimeout)
	assert.Zero(t, cfg.Memory.CacheTTL)
	assert.Equal(t, 50, cfg.Memory.SessionCapacity)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, "http://ollama:11434/v1", cfg.AI.GenerationHost)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.True(t, cfg.SmartFilter.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "pipeline: [1, 2"))
		assert.Error(t, err)
	})

	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown backend", yaml: "storage:\n  vector_backend: faiss\n"},
		{name: "threshold out of range", yaml: "smart_filter:\n  content_relevance_threshold: 1.5\n"},
		{name: "zero hybrid weights", yaml: "reranking:\n  semantic_weight: 0\n  keyword_weight: 0\n"},
		{name: "unknown precedence", yaml: "validator:\n  precedence: loose\n"},
		{name: "qdrant without collection", yaml: "storage:\n  vector_backend: qdrant\n  qdrant:\n    collection: \"\"\n"},
		{name: "zero top k", yaml: "pipeline:\n  similarity_top_k: 0\n"},
		{name: "missing path", yaml: "storage:\n  path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	cfg := DefaultConfig()
	cfg.Pipeline.SimilarityTopK = 7
	cfg.Pipeline.RequestTimeout = 90 * time.Second
	cfg.AI.APIKey = "do-not-write"

	path := filepath.Join(t.TempDir(), "nested", "recall.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "do-not-write")
	assert.Contains(t, string(data), "similarity_top_k: 7")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Pipeline.SimilarityTopK)
	assert.Equal(t, 90*time.Second, loaded.Pipeline.RequestTimeout)
	assert.Equal(t, cfg.Memory, loaded.Memory)
	assert.Empty(t, loaded.AI.APIKey)

	assert.ErrorIs(t, Save("", cfg), ErrPathRequired)
}
