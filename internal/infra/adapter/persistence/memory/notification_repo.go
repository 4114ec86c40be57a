// Package memory provides process-local implementations of the repository ports.
// They back the engine in development (NOTIFY_STORE=memory) and in tests.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"research-notify/internal/domain/entity"
	"research-notify/internal/repository"
)

type NotificationRepo struct {
	mu       sync.RWMutex
	items    map[string]*entity.Notification
	statuses repository.StudentStatusRepository
	now      func() time.Time
}

// NewNotificationRepo returns an empty store. statuses expands the student
// status link in GetWithStatusLink; nil means every link target is absent.
func NewNotificationRepo(statuses repository.StudentStatusRepository) *NotificationRepo {
	return &NotificationRepo{
		items:    make(map[string]*entity.Notification),
		statuses: statuses,
		now:      time.Now,
	}
}

func clone(n *entity.Notification) *entity.Notification {
	c := *n
	if n.Metadata != nil {
		c.Metadata = maps.Clone(n.Metadata)
	}
	if n.Owner != nil {
		owner := *n.Owner
		c.Owner = &owner
	}
	if n.SentAt != nil {
		sentAt := *n.SentAt
		c.SentAt = &sentAt
	}
	if n.StatusLink != nil {
		link := *n.StatusLink
		c.StatusLink = &link
	}
	return &c
}

func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	now := r.now().UTC()
	n.ID = uuid.NewString()
	if n.Status == "" {
		n.Status = entity.StatusPending
	}
	n.RetryCount = 0
	n.SentAt = nil
	n.Error = ""
	n.CreatedAt = now
	n.UpdatedAt = now

	stored := clone(n)
	stored.StatusLink = nil

	r.mu.Lock()
	r.items[n.ID] = stored
	r.mu.Unlock()
	return nil
}

func (r *NotificationRepo) Get(ctx context.Context, id string) (*entity.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return clone(n), nil
}

func (r *NotificationRepo) GetWithStatusLink(ctx context.Context, id string) (*entity.Notification, error) {
	n, err := r.Get(ctx, id)
	if err != nil || n == nil {
		return n, err
	}
	if n.StatusLinkID == "" || r.statuses == nil {
		return n, nil
	}

	link, err := r.statuses.Get(ctx, n.StatusLinkID)
	if err != nil {
		return nil, fmt.Errorf("GetWithStatusLink: %w", err)
	}
	n.StatusLink = link
	return n, nil
}

func (r *NotificationRepo) Update(ctx context.Context, id string, u entity.NotificationUpdate) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return fmt.Errorf("Update: %w", &entity.NotFoundError{Kind: "notification", ID: id})
	}
	u.Apply(n)
	n.UpdatedAt = r.now().UTC()
	return nil
}

func (r *NotificationRepo) List(ctx context.Context, f entity.NotificationFilter) ([]*entity.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	r.mu.RLock()
	out := make([]*entity.Notification, 0, len(r.items))
	for _, n := range r.items {
		if f.Matches(n) {
			out = append(out, clone(n))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledFor.Equal(out[j].ScheduledFor) {
			return out[i].ScheduledFor.Before(out[j].ScheduledFor)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Len returns the number of stored notifications.
func (r *NotificationRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
