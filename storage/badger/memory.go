package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// MemoryRepository implements storage.MemoryRepository for BadgerDB.
// Each user's tier is stored as one ordered list value.
type MemoryRepository struct {
	backend *Backend
}

var _ storage.MemoryRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates a new MemoryRepository.
func NewMemoryRepository(backend *Backend) *MemoryRepository {
	return &MemoryRepository{backend: backend}
}

// Close is a no-op; the backend owns the database.
func (r *MemoryRepository) Close() error {
	return nil
}

// LoadMemories returns the ordered memories of a user in a tier.
func (r *MemoryRepository) LoadMemories(ctx context.Context, tier core.MemoryTier, userID string) ([]*core.MemoryItem, error) {
	if err := checkTier(tier); err != nil {
		return nil, err
	}

	items := []*core.MemoryItem{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeMemoryKey(tier, userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			items, err = storage.UnmarshalMemories(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SaveMemories replaces the memories of a user in a tier.
func (r *MemoryRepository) SaveMemories(ctx context.Context, tier core.MemoryTier, userID string, items []*core.MemoryItem) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	value, err := storage.MarshalMemories(items)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeMemoryKey(tier, userID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteMemories removes all memories of a user in a tier.
func (r *MemoryRepository) DeleteMemories(ctx context.Context, tier core.MemoryTier, userID string) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeMemoryKey(tier, userID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// MemoryUsers lists the users with stored memories in a tier.
func (r *MemoryRepository) MemoryUsers(ctx context.Context, tier core.MemoryTier) ([]string, error) {
	if err := checkTier(tier); err != nil {
		return nil, err
	}

	var users []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMemoryTierPrefix(tier)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			users = append(users, memoryUserFromKey(tier, iter.Item().Key()))
		}
		return nil
	}, false)
	return users, err
}

func checkTier(tier core.MemoryTier) error {
	if tier != core.TierSession && tier != core.TierLongTerm {
		return core.ErrInvalidTier
	}
	return nil
}
