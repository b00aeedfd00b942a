package notifier

import (
	"context"
	"log/slog"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// LogNotifier writes new codes to the structured log instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: slog.Default()}
}

func (n *LogNotifier) Send(_ context.Context, recipient string, codes []models.CodeRecord) error {
	n.logger.Info("New SHiFT codes found", "count", len(codes), "recipient", recipient)
	for _, c := range codes {
		n.logger.Info("New SHiFT code", "code", c.Code, "reward", c.Reward, "added", c.Added, "expires", c.Expiry)
	}
	return nil
}
