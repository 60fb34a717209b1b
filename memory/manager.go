package memory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/retry"
	"github.com/poiesic/recall/storage"
)

// persistAttempts is the full write plus one retry with a reduced payload.
const persistAttempts = 2

// Manager maintains conversation memory.
// It is safe for concurrent use. Writes for one user are serialised;
// reads go through a TTL cache refreshed after every successful write.
type Manager struct {
	cfg    Config
	repo   storage.MemoryRepository
	cache  *cache.Cache
	locks  sync.Map // user ID -> *sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "memory")
		return nil
	}
}

// WithClock sets the time source used to stamp new memories.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) error {
		if now != nil {
			m.now = now
		}
		return nil
	}
}

// NewManager creates a memory manager over repo.
func NewManager(repo storage.MemoryRepository, cfg Config, opts ...Option) (*Manager, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:    cfg,
		repo:   repo,
		now:    time.Now,
		logger: slog.Default().With("component", "memory"),
	}
	if cfg.CacheTTL > 0 {
		m.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// AddToSession records an exchange in the user's session tier.
// The oldest items beyond the session capacity are evicted.
func (m *Manager) AddToSession(ctx context.Context, userID, question, answer string, details map[string]any) (*core.MemoryItem, error) {
	item, err := core.NewMemoryItem(userID, question, answer, details, m.now())
	if err != nil {
		return nil, err
	}
	stored, err := m.append(ctx, core.TierSession, item)
	if err != nil {
		return nil, err
	}
	return stored.Copy(), nil
}

// AddToLongTerm records an item in its user's long-term tier.
// The oldest items beyond the long-term capacity are evicted.
func (m *Manager) AddToLongTerm(ctx context.Context, item *core.MemoryItem) error {
	if err := core.ValidateMemoryItem(item); err != nil {
		return err
	}
	_, err := m.append(ctx, core.TierLongTerm, item.Copy())
	return err
}

func (m *Manager) append(ctx context.Context, tier core.MemoryTier, item *core.MemoryItem) (*core.MemoryItem, error) {
	unlock := m.lock(item.UserId)
	defer unlock()

	current, err := m.load(ctx, tier, item.UserId)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	next := make([]*core.MemoryItem, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, item)
	if overflow := len(next) - m.cfg.capacity(tier); overflow > 0 {
		next = next[overflow:]
		m.logger.Debug("evicted memories", "tier", tier, "user_id", item.UserId, "count", overflow)
	}

	saved, err := m.persist(ctx, tier, item.UserId, next)
	if err != nil {
		return nil, err
	}
	return saved[len(saved)-1], nil
}

// persist writes items, retrying once with only the essential context keys.
// The cache is updated only after a successful write.
func (m *Manager) persist(ctx context.Context, tier core.MemoryTier, userID string, items []*core.MemoryItem) ([]*core.MemoryItem, error) {
	var saved []*core.MemoryItem
	err := retry.WithBackoff(ctx, func(attempt int) error {
		payload := items
		if attempt > 1 {
			payload = m.reduce(items)
			m.logger.Warn("retrying memory write with reduced context", "tier", tier, "user_id", userID)
		}
		if err := m.repo.SaveMemories(ctx, tier, userID, payload); err != nil {
			return err
		}
		saved = payload
		return nil
	}, persistAttempts, m.cfg.RetryDelay)
	if err != nil {
		m.logger.Error("failed to persist memory", "tier", tier, "user_id", userID, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	m.cacheSet(tier, userID, saved)
	return saved, nil
}

func (m *Manager) reduce(items []*core.MemoryItem) []*core.MemoryItem {
	out := make([]*core.MemoryItem, len(items))
	for i, item := range items {
		c := item.Copy()
		c.Context = make(map[string]any, len(m.cfg.EssentialContextKeys))
		for _, k := range m.cfg.EssentialContextKeys {
			if v, ok := item.Context[k]; ok {
				c.Context[k] = v
			}
		}
		out[i] = c
	}
	return out
}

// RetrieveRelevant returns copies of the user's memories scoring at least
// threshold against question, most relevant first, at most limit of them.
// Session memories precede long-term ones among equal scores.
func (m *Manager) RetrieveRelevant(ctx context.Context, userID, question string, limit int, threshold float64) ([]*core.MemoryItem, error) {
	relevant, err := m.rank(ctx, userID, question, threshold, nil)
	if err != nil {
		return nil, err
	}
	return truncate(relevant, limit), nil
}

// rank scores every memory of the user against question and returns those
// reaching threshold in descending score order. Items matched by skip are
// dropped before scoring.
func (m *Manager) rank(ctx context.Context, userID, question string, threshold float64, skip func(*core.MemoryItem) bool) ([]*core.MemoryItem, error) {
	all, err := m.Items(ctx, userID, core.TierAll)
	if err != nil {
		return nil, err
	}

	relevant := make([]*core.MemoryItem, 0, len(all))
	for _, item := range all {
		if skip != nil && skip(item) {
			continue
		}
		score := m.Relevance(item.Question, question)
		if score >= threshold {
			item.RelevanceScore = score
			relevant = append(relevant, item)
		}
	}

	slices.SortStableFunc(relevant, func(a, b *core.MemoryItem) int {
		return cmp.Compare(b.RelevanceScore, a.RelevanceScore)
	})
	return relevant, nil
}

func truncate(items []*core.MemoryItem, limit int) []*core.MemoryItem {
	if len(items) > max(limit, 0) {
		return items[:max(limit, 0)]
	}
	return items
}

// Context is the memory prepared for one question.
type Context struct {
	Text      string
	Count     int
	HasMemory bool
	Items     []*core.MemoryItem
}

// BuildContext formats the memories relevant to question as numbered
// question and answer pairs, at most limit of them. Memories of the same
// question are left out before the limit applies, so a repeated question is
// not answered from its own earlier answer.
func (m *Manager) BuildContext(ctx context.Context, userID, question string, limit int, threshold float64) (*Context, error) {
	relevant, err := m.rank(ctx, userID, question, threshold, func(item *core.MemoryItem) bool {
		return sameQuestion(item.Question, question)
	})
	if err != nil {
		return nil, err
	}

	items := truncate(relevant, limit)
	if len(items) == 0 {
		return &Context{}, nil
	}

	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. Question: %s\n   Answer: %s\n\n", i+1, item.Question, item.Answer)
	}

	return &Context{
		Text:      strings.TrimSuffix(b.String(), "\n"),
		Count:     len(items),
		HasMemory: true,
		Items:     items,
	}, nil
}

func sameQuestion(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Items returns copies of a user's memories in a tier, oldest first.
// core.TierAll returns the session tier followed by the long-term tier.
func (m *Manager) Items(ctx context.Context, userID string, tier core.MemoryTier) ([]*core.MemoryItem, error) {
	var out []*core.MemoryItem
	for _, t := range tiers(tier) {
		items, err := m.load(ctx, t, userID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			out = append(out, item.Copy())
		}
	}
	return out, nil
}

// Get returns a copy of one of the user's memories by ID.
func (m *Manager) Get(ctx context.Context, userID, id string) (*core.MemoryItem, error) {
	items, err := m.Items(ctx, userID, core.TierAll)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Id == id {
			return item, nil
		}
	}
	return nil, ErrMemoryNotFound
}

// Clear removes memories. An empty userID clears every user, and
// core.TierAll clears both tiers.
func (m *Manager) Clear(ctx context.Context, userID string, tier core.MemoryTier) error {
	for _, t := range tiers(tier) {
		users := []string{userID}
		if userID == "" {
			var err error
			users, err = m.repo.MemoryUsers(ctx, t)
			if err != nil {
				return err
			}
		}
		for _, u := range users {
			if err := m.clearUser(ctx, t, u); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) clearUser(ctx context.Context, tier core.MemoryTier, userID string) error {
	unlock := m.lock(userID)
	defer unlock()

	if err := m.repo.DeleteMemories(ctx, tier, userID); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	if m.cache != nil {
		m.cache.Delete(cacheKey(tier, userID))
	}
	m.logger.Info("cleared memories", "tier", tier, "user_id", userID)
	return nil
}

// Stats counts stored memories.
type Stats struct {
	UserID        string `json:"user_id,omitempty"`
	Users         int    `json:"total_users"`
	SessionCount  int    `json:"session_memory_count"`
	LongTermCount int    `json:"user_memory_count"`
	Total         int    `json:"total_memory_count"`
}

// Stats reports the memory counts of one user, or totals across users when
// userID is empty.
func (m *Manager) Stats(ctx context.Context, userID string) (*Stats, error) {
	users := []string{userID}
	if userID == "" {
		seen := make(map[string]struct{})
		users = nil
		for _, t := range tiers(core.TierAll) {
			tierUsers, err := m.repo.MemoryUsers(ctx, t)
			if err != nil {
				return nil, err
			}
			for _, u := range tierUsers {
				if _, ok := seen[u]; !ok {
					seen[u] = struct{}{}
					users = append(users, u)
				}
			}
		}
	}

	st := &Stats{UserID: userID, Users: len(users)}
	for _, u := range users {
		session, err := m.load(ctx, core.TierSession, u)
		if err != nil {
			return nil, err
		}
		longTerm, err := m.load(ctx, core.TierLongTerm, u)
		if err != nil {
			return nil, err
		}
		st.SessionCount += len(session)
		st.LongTermCount += len(longTerm)
	}
	st.Total = st.SessionCount + st.LongTermCount
	return st, nil
}

// load returns the stored slice for a tier; callers must not modify it.
func (m *Manager) load(ctx context.Context, tier core.MemoryTier, userID string) ([]*core.MemoryItem, error) {
	if m.cache != nil {
		if v, ok := m.cache.Get(cacheKey(tier, userID)); ok {
			return v.([]*core.MemoryItem), nil
		}
	}
	items, err := m.repo.LoadMemories(ctx, tier, userID)
	if err != nil {
		return nil, err
	}
	m.cacheSet(tier, userID, items)
	return items, nil
}

func (m *Manager) cacheSet(tier core.MemoryTier, userID string, items []*core.MemoryItem) {
	if m.cache != nil {
		m.cache.Set(cacheKey(tier, userID), items, cache.DefaultExpiration)
	}
}

func (m *Manager) lock(userID string) func() {
	v, _ := m.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func cacheKey(tier core.MemoryTier, userID string) string {
	return string(tier) + ":" + userID
}

func tiers(tier core.MemoryTier) []core.MemoryTier {
	if tier == core.TierAll || tier == "" {
		return []core.MemoryTier{core.TierSession, core.TierLongTerm}
	}
	return []core.MemoryTier{tier}
}
