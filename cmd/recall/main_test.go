package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/storage/file"
)

func testDeps() deps {
	return deps{
		open: func(cfg *config.Config, opts ...recall.Option) (*recall.Engine, error) {
			return recall.Open(cfg, append(opts, recall.WithProvider(mock.NewMockProvider()))...)
		},
		newEmbedder: func(*ai.Config) (ai.Embedder, error) {
			return mock.NewMockEmbedder(), nil
		},
	}
}

// testEnv writes a configuration whose storage lives in a temp dir.
func testEnv(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "recall.yaml")
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "db")
	require.NoError(t, config.Save(cfgPath, cfg))
	return dir, cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(testDeps())
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"recall", "--env-file", ""}, args...))
	return out.String(), err
}

func writePassages(t *testing.T, dir string) string {
	t.Helper()
	lines := []string{
		`{"content":"中芯国际 2024年 营收 577.96亿元","metadata":{"document_name":"smic.pdf","page_number":3,"chunk_type":"text"}}`,
		`{"content":"中芯国际 2024年 净利润 49.9亿元","metadata":{"document_name":"smic.pdf","page_number":4,"chunk_type":"table"}}`,
	}
	path := filepath.Join(dir, "passages.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestWorkflow(t *testing.T) {
	dir, cfgPath := testEnv(t)

	out, err := run(t, "--config", cfgPath, "index", "--file", writePassages(t, dir))
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 passages")

	metricsPath := filepath.Join(dir, "metrics.prom")
	out, err = run(t, "--config", cfgPath, "ask", "--user", "alice", "--metrics-file", metricsPath, "中芯国际", "2024年", "营收")
	require.NoError(t, err)
	assert.Contains(t, out, "Candidates: 2 retrieved")
	assert.Contains(t, out, "Cost:")

	metricsText, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "recall_runs_total")

	out, err = run(t, "--config", cfgPath, "ask", "--json", "中芯国际 净利润")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.NotEmpty(t, decoded["answer"])
	assert.Contains(t, decoded, "optimization_stats")

	out, err = run(t, "--config", cfgPath, "memory", "stats", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "User: alice")
	assert.Contains(t, out, "Session memories: 1")

	exportDir := filepath.Join(dir, "export")
	out, err = run(t, "--config", cfgPath, "memory", "export", "--out", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 memories")
	assert.FileExists(t, filepath.Join(exportDir, file.SessionFile))

	out, err = run(t, "--config", cfgPath, "memory", "clear", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared all memories for alice")

	out, err = run(t, "--config", cfgPath, "memory", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 0")
}

func TestReembed(t *testing.T) {
	dir, cfgPath := testEnv(t)
	_, err := run(t, "--config", cfgPath, "index", "--file", writePassages(t, dir))
	require.NoError(t, err)

	_, err = run(t, "--config", cfgPath, "reembed", "--embedding-model", "nomic-embed-text")
	assert.NoError(t, err)

	tests := []struct {
		flag string
		want string
	}{
		{flag: "--batch-size", want: "batch-size must be greater than 0"},
		{flag: "--report-interval", want: "report-interval must be greater than 0"},
		{flag: "--max-retries", want: "max-retries must be greater than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			_, err := run(t, "--config", cfgPath, "reembed", "--embedding-model", "m", tt.flag, "0")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")

	out, err := run(t, "config", "init", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Pipeline, cfg.Pipeline)

	_, err = run(t, "config", "init", "--out", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", "--out", path, "--force")
	assert.NoError(t, err)
}

func TestErrors(t *testing.T) {
	_, cfgPath := testEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing question", args: []string{"--config", cfgPath, "ask"}, want: "a question is required"},
		{name: "index without file", args: []string{"index"}, want: "Required flag"},
		{name: "missing passages file", args: []string{"--config", cfgPath, "index", "--file", "/nonexistent.jsonl"}, want: "no such file"},
		{name: "invalid log level", args: []string{"--log-level", "verbose", "--config", cfgPath, "memory", "stats"}, want: "invalid log level"},
		{name: "invalid tier", args: []string{"--config", cfgPath, "memory", "clear", "--tier", "forever"}, want: "tier"},
		{name: "reembed without model", args: []string{"reembed"}, want: "Required flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			closer, err := setupLogger(level, "", &bytes.Buffer{})
			require.NoError(t, err)
			assert.Nil(t, closer)
		})
	}

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "recall.log")
		closer, err := setupLogger("info", path, nil)
		require.NoError(t, err)
		require.NotNil(t, closer)
		assert.NoError(t, closer.Close())
	})
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, loadEnv(""))
	assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("%s=from-env-file\n", config.APIKeyEnv)), 0600))
	t.Setenv(config.APIKeyEnv, "")
	require.NoError(t, os.Unsetenv(config.APIKeyEnv))
	require.NoError(t, loadEnv(path))
	assert.Equal(t, "from-env-file", os.Getenv(config.APIKeyEnv))
}
