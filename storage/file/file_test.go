package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

func item(t *testing.T, user, question string) *core.MemoryItem {
	it, err := core.NewMemoryItem(user, question, "answer", nil, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	return it
}

func TestMemoryRepository_DocumentLayout(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewMemoryRepository(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.SaveMemories(ctx, core.TierSession, "alice", []*core.MemoryItem{item(t, "alice", "q1")}))
	require.NoError(t, repo.SaveMemories(ctx, core.TierLongTerm, "bob", []*core.MemoryItem{item(t, "bob", "q2")}))

	data, err := os.ReadFile(filepath.Join(dir, SessionFile))
	require.NoError(t, err)
	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw["alice"], 1)
	assert.Equal(t, "q1", raw["alice"][0]["question"])
	assert.Equal(t, "alice", raw["alice"][0]["user_id"])
	assert.Contains(t, raw["alice"][0], "memory_id")

	_, err = os.Stat(filepath.Join(dir, LongTermFile))
	require.NoError(t, err)
}

func TestMemoryRepository_LoadDeleteUsers(t *testing.T) {
	repo, err := NewMemoryRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	items, err := repo.LoadMemories(ctx, core.TierSession, "nobody")
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, repo.SaveMemories(ctx, core.TierSession, "zed", nil))
	require.NoError(t, repo.SaveMemories(ctx, core.TierSession, "amy", []*core.MemoryItem{item(t, "amy", "q")}))

	users, err := repo.MemoryUsers(ctx, core.TierSession)
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "zed"}, users)

	require.NoError(t, repo.DeleteMemories(ctx, core.TierSession, "amy"))
	require.NoError(t, repo.DeleteMemories(ctx, core.TierSession, "amy"))
	users, err = repo.MemoryUsers(ctx, core.TierSession)
	require.NoError(t, err)
	assert.Equal(t, []string{"zed"}, users)

	_, err = repo.LoadMemories(ctx, core.TierAll, "amy")
	assert.ErrorIs(t, err, core.ErrInvalidTier)
}

func TestMemoryRepository_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SessionFile), []byte("{"), 0644))
	repo, err := NewMemoryRepository(dir)
	require.NoError(t, err)

	_, err = repo.LoadMemories(context.Background(), core.TierSession, "alice")
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)
}

func TestExport(t *testing.T) {
	_, mems, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, mems.SaveMemories(ctx, core.TierSession, "alice", []*core.MemoryItem{item(t, "alice", "a"), item(t, "alice", "b")}))
	require.NoError(t, mems.SaveMemories(ctx, core.TierLongTerm, "alice", []*core.MemoryItem{item(t, "alice", "c")}))

	repo, err := NewMemoryRepository(t.TempDir())
	require.NoError(t, err)
	n, err := repo.Export(ctx, mems)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := repo.LoadMemories(ctx, core.TierSession, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Question)
}
