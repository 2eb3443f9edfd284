// Package modelconfig manages per-user model overrides keyed by action.
package modelconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/appforge-ai/appforge/internal/storage"
	"github.com/appforge-ai/appforge/pkg/types"
)

// Store retrieves and persists a user's per-action model overrides. A
// user without saved overrides yields an empty map, never an error.
type Store interface {
	Get(ctx context.Context, userID string) (map[string]types.ModelOverride, error)
	Put(ctx context.Context, userID string, overrides map[string]types.ModelOverride) error
}

// FileStore is a Store backed by file JSON storage.
type FileStore struct {
	store *storage.Storage
}

// NewFileStore creates a FileStore.
func NewFileStore(store *storage.Storage) *FileStore {
	return &FileStore{store: store}
}

func overridePath(userID string) []string {
	return []string{"modelconfig", userID}
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, userID string) (map[string]types.ModelOverride, error) {
	if userID == "" {
		return map[string]types.ModelOverride{}, nil
	}

	var overrides map[string]types.ModelOverride
	if err := s.store.Get(ctx, overridePath(userID), &overrides); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return map[string]types.ModelOverride{}, nil
		}
		return nil, fmt.Errorf("load model overrides: %w", err)
	}
	if overrides == nil {
		overrides = map[string]types.ModelOverride{}
	}
	return overrides, nil
}

// Put implements Store.
func (s *FileStore) Put(ctx context.Context, userID string, overrides map[string]types.ModelOverride) error {
	if userID == "" {
		return fmt.Errorf("user id required")
	}
	if err := s.store.Put(ctx, overridePath(userID), overrides); err != nil {
		return fmt.Errorf("save model overrides: %w", err)
	}
	return nil
}

// UserPreferred filters a raw override map down to entries the user
// explicitly chose, which are the only ones a turn should honor.
func UserPreferred(overrides map[string]types.ModelOverride) map[string]types.ModelOverride {
	preferred := map[string]types.ModelOverride{}
	for action, override := range overrides {
		if override.IsUserOverride {
			preferred[action] = override
		}
	}
	return preferred
}
