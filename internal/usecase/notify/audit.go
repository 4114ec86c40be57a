package notify

import (
	"context"
	"fmt"
	"log/slog"

	"research-notify/internal/domain/entity"
)

// maxLoggedStaleIDs caps the ids included in the audit warning.
const maxLoggedStaleIDs = 10

// AuditStalePending implements Service.AuditStalePending. It only reports;
// stale records are never fired or modified.
func (e *Engine) AuditStalePending(ctx context.Context) (int, error) {
	before := e.now()
	overdue, err := e.store.List(ctx, entity.NotificationFilter{
		Status:          entity.StatusPending,
		ScheduledBefore: before,
	})
	if err != nil {
		return 0, fmt.Errorf("audit stale notifications: %w", err)
	}

	var stale []string
	for _, n := range overdue {
		if !e.scheduler.Active(n.ID) {
			stale = append(stale, n.ID)
		}
	}
	SetStalePending(len(stale))

	if len(stale) == 0 {
		e.logger.Debug("stale notification audit clean", slog.Int("overdue_pending", len(overdue)))
		return 0, nil
	}

	sample := stale
	if len(sample) > maxLoggedStaleIDs {
		sample = sample[:maxLoggedStaleIDs]
	}
	e.logger.Warn("stale pending notifications found",
		slog.Int("count", len(stale)),
		slog.Any("ids", sample))
	return len(stale), nil
}
