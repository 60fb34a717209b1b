package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/core"
)

func TestMemoryRepository_RoundTrip(t *testing.T) {
	_, mems := newRepos(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	items, err := mems.LoadMemories(ctx, core.TierSession, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)

	first, err := core.NewMemoryItem("alice", "营收是多少", "12亿", map[string]any{"cost": 0.01}, now)
	require.NoError(t, err)
	second, err := core.NewMemoryItem("alice", "利润呢", "3亿", nil, now.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, mems.SaveMemories(ctx, core.TierSession, "alice", []*core.MemoryItem{first, second}))

	got, err := mems.LoadMemories(ctx, core.TierSession, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.Id, got[0].Id)
	assert.Equal(t, "利润呢", got[1].Question)
	assert.Equal(t, first.Timestamp, got[0].Timestamp)

	other, err := mems.LoadMemories(ctx, core.TierLongTerm, "alice")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryRepository_UsersAndDelete(t *testing.T) {
	_, mems := newRepos(t)
	ctx := context.Background()

	require.NoError(t, mems.SaveMemories(ctx, core.TierLongTerm, "alice", nil))
	require.NoError(t, mems.SaveMemories(ctx, core.TierLongTerm, "bob:work", nil))
	require.NoError(t, mems.SaveMemories(ctx, core.TierSession, "carol", nil))

	users, err := mems.MemoryUsers(ctx, core.TierLongTerm)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob:work"}, users)

	require.NoError(t, mems.DeleteMemories(ctx, core.TierLongTerm, "alice"))
	require.NoError(t, mems.DeleteMemories(ctx, core.TierLongTerm, "nobody"))

	users, err = mems.MemoryUsers(ctx, core.TierLongTerm)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob:work"}, users)
}

func TestMemoryRepository_RejectsAllTier(t *testing.T) {
	_, mems := newRepos(t)
	ctx := context.Background()

	_, err := mems.LoadMemories(ctx, core.TierAll, "alice")
	assert.ErrorIs(t, err, core.ErrInvalidTier)
	assert.ErrorIs(t, mems.SaveMemories(ctx, core.TierAll, "alice", nil), core.ErrInvalidTier)
}
