package storage

import (
	"context"
	"fmt"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// Store persists the known set between runs.
//
// Load returns an empty set when nothing has been persisted yet and a
// *models.StoreCorruptError when persisted data cannot be decoded. Save
// replaces the persisted set atomically and reports failures as
// *models.StoreWriteError.
type Store interface {
	Load(ctx context.Context) (models.KnownSet, error)
	Save(ctx context.Context, set models.KnownSet) error
	Close() error
}

// New opens the backend selected by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendFile:
		return NewFileStore(cfg.StateFile), nil
	case config.StoreBackendFirestore:
		return NewFirestore(ctx, cfg.ProjectID, cfg.FirestoreCollection, cfg.FirestoreDocument)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
