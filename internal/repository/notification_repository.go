package repository

import (
	"context"

	"research-notify/internal/domain/entity"
)

// NotificationRepository is the durable record of every notification.
// It is the single source of truth the delivery engine re-reads at fire time.
type NotificationRepository interface {
	// Create assigns an ID, stamps the audit columns and persists n.
	Create(ctx context.Context, n *entity.Notification) error
	// Get returns nil, nil when no record has the given id.
	Get(ctx context.Context, id string) (*entity.Notification, error)
	// GetWithStatusLink behaves like Get and also expands the student status link.
	GetWithStatusLink(ctx context.Context, id string) (*entity.Notification, error)
	// Update merges the non-nil fields of u. Returns entity.ErrNotFound when no row matched.
	Update(ctx context.Context, id string, u entity.NotificationUpdate) error
	List(ctx context.Context, f entity.NotificationFilter) ([]*entity.Notification, error)
}

type StudentStatusRepository interface {
	Get(ctx context.Context, id string) (*entity.StudentStatus, error)
}
