package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

// fakeRepo is an in-memory storage.MemoryRepository whose writes can be
// intercepted through SaveFunc.
type fakeRepo struct {
	mu       sync.Mutex
	data     map[core.MemoryTier]map[string][]*core.MemoryItem
	SaveFunc func(attempt int, items []*core.MemoryItem) error
	saves    int
}

var _ storage.MemoryRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{data: map[core.MemoryTier]map[string][]*core.MemoryItem{
		core.TierSession:  {},
		core.TierLongTerm: {},
	}}
}

func (f *fakeRepo) LoadMemories(_ context.Context, tier core.MemoryTier, userID string) ([]*core.MemoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.data[tier][userID]
	if items == nil {
		items = []*core.MemoryItem{}
	}
	return items, nil
}

func (f *fakeRepo) SaveMemories(_ context.Context, tier core.MemoryTier, userID string, items []*core.MemoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.SaveFunc != nil {
		if err := f.SaveFunc(f.saves, items); err != nil {
			return err
		}
	}
	f.data[tier][userID] = items
	return nil
}

func (f *fakeRepo) DeleteMemories(_ context.Context, tier core.MemoryTier, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[tier], userID)
	return nil
}

func (f *fakeRepo) MemoryUsers(_ context.Context, tier core.MemoryTier) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []string
	for u := range f.data[tier] {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeRepo) Close() error { return nil }

func ticker() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newManager(t require.TestingT, repo storage.MemoryRepository, mutate func(*Config)) *Manager {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(repo, cfg, WithClock(ticker()))
	require.NoError(t, err)
	return m
}

func TestNewManager_Errors(t *testing.T) {
	_, err := NewManager(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	cfg := DefaultConfig()
	cfg.SessionCapacity = 0
	_, err = NewManager(newFakeRepo(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRelevance_Cascade(t *testing.T) {
	m := newManager(t, newFakeRepo(), nil)

	tests := []struct {
		name    string
		past    string
		current string
		want    float64
	}{
		{name: "reference marker", past: "营收", current: "那个公司的利润呢", want: 0.9},
		{name: "english reference", past: "revenue", current: "How did it change", want: 0.9},
		{name: "same year", past: "2024年营收", current: "2024年利润", want: 0.8},
		{name: "adjacent year", past: "2024年营收是多少", current: "2025年营收是多少", want: 0.7},
		{name: "distant years fall through", past: "2020年营收", current: "2024年营收", want: 0.5},
		{name: "organisation", past: "中芯国际营收", current: "中芯国际利润", want: 0.6},
		{name: "chart term", past: "营收走势", current: "营收增长", want: 0.5},
		{name: "domain term", past: "利润多少", current: "利润增长", want: 0.4},
		{name: "english domain", past: "profit margin", current: "profit outlook", want: 0.4},
		{name: "fallback jaccard", past: "hello world", current: "hello there", want: 0.2 / 3},
		{name: "nothing shared", past: "天气", current: "股价", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.Relevance(tt.past, tt.current), 1e-9)
		})
	}
}

func TestRelevance_AdjacentYears(t *testing.T) {
	m := newManager(t, newFakeRepo(), nil)
	rapid.Check(t, func(rt *rapid.T) {
		year := rapid.IntRange(1900, 2098).Draw(rt, "year")
		past := fmt.Sprintf("%d年营收是多少", year)
		current := fmt.Sprintf("%d年营收是多少", year+1)
		if got := m.Relevance(past, current); got != 0.7 {
			rt.Fatalf("relevance(%q, %q) = %f, want 0.7", past, current, got)
		}
		if got := m.Relevance(current, past); got != 0.7 {
			rt.Fatalf("relevance is not symmetric for adjacent years: %f", got)
		}
	})
}

func TestAddToSession_FIFOEviction(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	m := newManager(t, repo, nil)

	for i := 1; i <= 51; i++ {
		_, err := m.AddToSession(ctx, "alice", fmt.Sprintf("q%d", i), "a", nil)
		require.NoError(t, err)
	}

	items, err := m.Items(ctx, "alice", core.TierSession)
	require.NoError(t, err)
	require.Len(t, items, 50)
	assert.Equal(t, "q2", items[0].Question)
	assert.Equal(t, "q51", items[49].Question)

	stored, err := repo.LoadMemories(ctx, core.TierSession, "alice")
	require.NoError(t, err)
	assert.Len(t, stored, 50)
}

func TestAddToSession_CapacityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 10).Draw(rt, "capacity")
		n := rapid.IntRange(1, 25).Draw(rt, "n")
		m := newManager(rt, newFakeRepo(), func(c *Config) { c.SessionCapacity = capacity })
		ctx := context.Background()

		for i := 1; i <= n; i++ {
			if _, err := m.AddToSession(ctx, "u", fmt.Sprintf("q%d", i), "a", nil); err != nil {
				rt.Fatalf("add: %v", err)
			}
		}
		items, err := m.Items(ctx, "u", core.TierSession)
		if err != nil {
			rt.Fatalf("items: %v", err)
		}
		if len(items) != min(n, capacity) {
			rt.Fatalf("got %d items, want %d", len(items), min(n, capacity))
		}
		if last := items[len(items)-1].Question; last != fmt.Sprintf("q%d", n) {
			rt.Fatalf("newest item is %q", last)
		}
		if first := items[0].Question; first != fmt.Sprintf("q%d", n-len(items)+1) {
			rt.Fatalf("oldest item is %q", first)
		}
	})
}

func TestAddToSession_ValidatesInput(t *testing.T) {
	m := newManager(t, newFakeRepo(), nil)
	_, err := m.AddToSession(context.Background(), "", "q", "a", nil)
	assert.ErrorIs(t, err, core.ErrEmptyUserID)
	_, err = m.AddToSession(context.Background(), "alice", "  ", "a", nil)
	assert.ErrorIs(t, err, core.ErrEmptyQuestion)
}

func TestPersist_RetriesWithEssentialContext(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	var payloads [][]*core.MemoryItem
	repo.SaveFunc = func(attempt int, items []*core.MemoryItem) error {
		payloads = append(payloads, items)
		if attempt == 1 {
			return errors.New("payload too large")
		}
		return nil
	}
	m := newManager(t, repo, nil)

	item, err := m.AddToSession(ctx, "alice", "营收", "12亿", map[string]any{
		"cost":              0.002,
		"relevant_memories": 1,
		"sources":           []string{"a", "b"},
	})
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.Contains(t, payloads[0][0].Context, "sources")
	assert.Equal(t, map[string]any{"cost": 0.002, "relevant_memories": 1}, payloads[1][0].Context)
	assert.NotContains(t, item.Context, "sources")
}

func TestPersist_FailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	m := newManager(t, repo, nil)

	_, err := m.AddToSession(ctx, "alice", "first", "a", nil)
	require.NoError(t, err)

	repo.SaveFunc = func(int, []*core.MemoryItem) error { return errors.New("disk full") }
	_, err = m.AddToSession(ctx, "alice", "second", "a", nil)
	require.ErrorIs(t, err, core.ErrPersistence)

	items, err := m.Items(ctx, "alice", core.TierSession)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Question)
}

func TestRetrieveRelevant_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newFakeRepo(), nil)

	for _, q := range []string{"天气", "2024年利润", "营收走势", "2025年营收"} {
		_, err := m.AddToSession(ctx, "alice", q, "a", nil)
		require.NoError(t, err)
	}
	long, err := core.NewMemoryItem("alice", "2024年营收", "b", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, m.AddToLongTerm(ctx, long))

	got, err := m.RetrieveRelevant(ctx, "alice", "2024年营收", 3, 0.1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024年利润", got[0].Question)
	assert.InDelta(t, 0.8, got[0].RelevanceScore, 1e-9)
	assert.Equal(t, "2024年营收", got[1].Question)
	assert.InDelta(t, 0.8, got[1].RelevanceScore, 1e-9)
	assert.Equal(t, "2025年营收", got[2].Question)
	assert.InDelta(t, 0.7, got[2].RelevanceScore, 1e-9)

	stored, err := m.Items(ctx, "alice", core.TierSession)
	require.NoError(t, err)
	assert.Zero(t, stored[1].RelevanceScore)

	none, err := m.RetrieveRelevant(ctx, "alice", "2024年营收", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBuildContext_ExcludesSameQuestion(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newFakeRepo(), nil)

	_, err := m.AddToSession(ctx, "alice", "营收是多少", "12亿", nil)
	require.NoError(t, err)

	mc, err := m.BuildContext(ctx, "alice", "  营收是多少 ", 5, 0.1)
	require.NoError(t, err)
	assert.False(t, mc.HasMemory)
	assert.Empty(t, mc.Text)
	assert.Zero(t, mc.Count)

	relevant, err := m.RetrieveRelevant(ctx, "alice", "营收是多少", 5, 0.1)
	require.NoError(t, err)
	assert.Len(t, relevant, 1)

	st, err := m.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, st.SessionCount)

	_, err = m.AddToSession(ctx, "alice", "营收增长多少", "30%", nil)
	require.NoError(t, err)
	mc, err = m.BuildContext(ctx, "alice", "营收是多少", 5, 0.1)
	require.NoError(t, err)
	assert.True(t, mc.HasMemory)
	assert.Equal(t, 1, mc.Count)
	assert.Equal(t, "1. Question: 营收增长多少\n   Answer: 30%\n", mc.Text)
}

func TestBuildContext_DuplicateProperty(t *testing.T) {
	questions := []string{"营收是多少", "2024年利润", "那个公司呢", "revenue trend", "天气"}
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		m := newManager(rt, newFakeRepo(), nil)
		stored := rapid.SliceOfN(rapid.SampledFrom(questions), 1, 6).Draw(rt, "stored")
		for _, q := range stored {
			if _, err := m.AddToSession(ctx, "u", q, "a", nil); err != nil {
				rt.Fatalf("add: %v", err)
			}
		}
		current := rapid.SampledFrom(questions).Draw(rt, "current")

		mc, err := m.BuildContext(ctx, "u", current, 10, 0)
		if err != nil {
			rt.Fatalf("build: %v", err)
		}
		for _, item := range mc.Items {
			if sameQuestion(item.Question, current) {
				rt.Fatalf("context contains the current question %q", current)
			}
		}
		if mc.HasMemory != (mc.Count > 0) || mc.Count != len(mc.Items) {
			rt.Fatalf("inconsistent context: %+v", mc)
		}
	})
}

func TestBuildContext_SameQuestionDoesNotTakeSlot(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newFakeRepo(), nil)

	for _, q := range []string{"2024年营收", "2024年利润", "2025年营收"} {
		_, err := m.AddToSession(ctx, "alice", q, "a", nil)
		require.NoError(t, err)
	}

	mc, err := m.BuildContext(ctx, "alice", "2024年营收", 2, 0.1)
	require.NoError(t, err)
	require.Equal(t, 2, mc.Count)
	assert.Equal(t, "2024年利润", mc.Items[0].Question)
	assert.Equal(t, "2025年营收", mc.Items[1].Question)

	relevant, err := m.RetrieveRelevant(ctx, "alice", "2024年营收", 2, 0.1)
	require.NoError(t, err)
	require.Len(t, relevant, 2)
	assert.Equal(t, "2024年营收", relevant[0].Question)
}

func TestAddToSession_Concurrent(t *testing.T) {
	const writers = 40

	tests := []struct {
		name     string
		capacity int
		cacheTTL time.Duration
	}{
		{name: "cached", capacity: 1000, cacheTTL: time.Minute},
		{name: "uncached", capacity: 1000, cacheTTL: 0},
		{name: "evicting cached", capacity: 10, cacheTTL: time.Minute},
		{name: "evicting uncached", capacity: 10, cacheTTL: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newFakeRepo()
			m := newManager(t, repo, func(c *Config) {
				c.SessionCapacity = tt.capacity
				c.CacheTTL = tt.cacheTTL
			})

			var wg sync.WaitGroup
			errs := make(chan error, 2*writers)
			for i := range writers {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_, err := m.AddToSession(ctx, "alice", fmt.Sprintf("2024年问题%d", i), "a", nil)
					errs <- err
				}()
				go func() {
					defer wg.Done()
					_, err := m.RetrieveRelevant(ctx, "alice", "2024年营收", 5, 0.1)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			want := min(writers, tt.capacity)
			items, err := m.Items(ctx, "alice", core.TierSession)
			require.NoError(t, err)
			assert.Len(t, items, want)

			stored, err := repo.LoadMemories(ctx, core.TierSession, "alice")
			require.NoError(t, err)
			assert.Len(t, stored, want)

			seen := make(map[string]struct{}, len(stored))
			for _, item := range stored {
				seen[item.Id] = struct{}{}
			}
			assert.Len(t, seen, want)
		})
	}
}

func TestGetClearAndStats(t *testing.T) {
	ctx := context.Background()
	_, mems, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	m := newManager(t, mems, nil)

	a, err := m.AddToSession(ctx, "alice", "q1", "a1", nil)
	require.NoError(t, err)
	_, err = m.AddToSession(ctx, "bob", "q2", "a2", nil)
	require.NoError(t, err)
	require.NoError(t, m.AddToLongTerm(ctx, a))

	got, err := m.Get(ctx, "alice", a.Id)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.Answer)
	_, err = m.Get(ctx, "alice", "missing")
	assert.ErrorIs(t, err, ErrMemoryNotFound)

	st, err := m.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 2, SessionCount: 2, LongTermCount: 1, Total: 3}, *st)

	require.NoError(t, m.Clear(ctx, "alice", core.TierSession))
	st, err = m.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, st.SessionCount)
	assert.Equal(t, 1, st.LongTermCount)

	require.NoError(t, m.Clear(ctx, "", core.TierAll))
	st, err = m.Stats(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.Zero(t, st.Users)
}

func TestAddToLongTerm_Capacity(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, newFakeRepo(), func(c *Config) { c.LongTermCapacity = 3 })

	for i := range 5 {
		item, err := core.NewMemoryItem("alice", fmt.Sprintf("q%d", i), "a", nil, time.Now())
		require.NoError(t, err)
		require.NoError(t, m.AddToLongTerm(ctx, item))
	}
	items, err := m.Items(ctx, "alice", core.TierLongTerm)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "q2", items[0].Question)

	assert.ErrorIs(t, m.AddToLongTerm(ctx, nil), core.ErrInvalidMemoryItem)
}
