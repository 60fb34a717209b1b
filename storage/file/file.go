// Package file stores conversation memory as two JSON documents,
// session_memory.json and user_memory.json, each mapping a user ID to the
// user's ordered memories.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// SessionFile holds the session tier.
	SessionFile = "session_memory.json"
	// LongTermFile holds the long-term tier.
	LongTermFile = "user_memory.json"
)

type document map[string][]*core.MemoryItem

// MemoryRepository implements storage.MemoryRepository over a directory.
// Every write rewrites the whole tier document through a temporary file.
type MemoryRepository struct {
	dir string
	mu  sync.Mutex
}

var _ storage.MemoryRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates a repository rooted at dir, creating it if needed.
func NewMemoryRepository(dir string) (*MemoryRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}
	return &MemoryRepository{dir: dir}, nil
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}

// Path returns the document path of a tier.
func (r *MemoryRepository) Path(tier core.MemoryTier) (string, error) {
	switch tier {
	case core.TierSession:
		return filepath.Join(r.dir, SessionFile), nil
	case core.TierLongTerm:
		return filepath.Join(r.dir, LongTermFile), nil
	}
	return "", core.ErrInvalidTier
}

// LoadMemories returns the ordered memories of a user in a tier.
func (r *MemoryRepository) LoadMemories(ctx context.Context, tier core.MemoryTier, userID string) ([]*core.MemoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read(tier)
	if err != nil {
		return nil, err
	}
	items := doc[userID]
	if items == nil {
		items = []*core.MemoryItem{}
	}
	return items, nil
}

// SaveMemories replaces the memories of a user in a tier.
func (r *MemoryRepository) SaveMemories(ctx context.Context, tier core.MemoryTier, userID string, items []*core.MemoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read(tier)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*core.MemoryItem{}
	}
	doc[userID] = items
	return r.write(tier, doc)
}

// DeleteMemories removes all memories of a user in a tier.
func (r *MemoryRepository) DeleteMemories(ctx context.Context, tier core.MemoryTier, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read(tier)
	if err != nil {
		return err
	}
	if _, ok := doc[userID]; !ok {
		return nil
	}
	delete(doc, userID)
	return r.write(tier, doc)
}

// MemoryUsers lists the users with stored memories in a tier, sorted.
func (r *MemoryRepository) MemoryUsers(ctx context.Context, tier core.MemoryTier) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read(tier)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(doc)), nil
}

func (r *MemoryRepository) read(tier core.MemoryTier) (document, error) {
	path, err := r.Path(tier)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, err
	}

	doc := document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrSerializationFailed, filepath.Base(path), err)
	}
	return doc, nil
}

func (r *MemoryRepository) write(tier core.MemoryTier, doc document) error {
	path, err := r.Path(tier)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	tmp, err := os.CreateTemp(r.dir, filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Export copies every user of every tier from src into r.
func (r *MemoryRepository) Export(ctx context.Context, src storage.MemoryRepository) (int, error) {
	total := 0
	for _, tier := range []core.MemoryTier{core.TierSession, core.TierLongTerm} {
		users, err := src.MemoryUsers(ctx, tier)
		if err != nil {
			return total, err
		}
		for _, user := range users {
			items, err := src.LoadMemories(ctx, tier, user)
			if err != nil {
				return total, err
			}
			if err := r.SaveMemories(ctx, tier, user, items); err != nil {
				return total, err
			}
			total += len(items)
		}
	}
	return total, nil
}
