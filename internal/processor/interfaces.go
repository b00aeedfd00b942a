package processor

import (
	"context"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// KnownSetStore abstracts the storage layer for the known code set.
type KnownSetStore interface {
	Load(ctx context.Context) (models.KnownSet, error)
	Save(ctx context.Context, set models.KnownSet) error
}

// CodeNotifier abstracts the notification layer.
type CodeNotifier interface {
	Send(ctx context.Context, recipient string, codes []models.CodeRecord) error
}
