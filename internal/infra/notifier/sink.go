package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"research-notify/internal/observability/logging"
)

// ErrSinkClosed is returned by Deliver after the sink has been closed.
var ErrSinkClosed = errors.New("notification sink closed")

// DefaultInboxCapacity is the number of items kept per recipient.
const DefaultInboxCapacity = 100

// InboxSink keeps the most recent system notifications per recipient in memory.
// When an inbox is full the oldest item is discarded.
type InboxSink struct {
	mu       sync.RWMutex
	capacity int
	inboxes  map[string][]InboxItem
	closed   bool
	logger   *slog.Logger
}

func NewInboxSink(capacity int, logger *slog.Logger) *InboxSink {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InboxSink{
		capacity: capacity,
		inboxes:  make(map[string][]InboxItem),
		logger:   logger,
	}
}

func inboxKey(recipient string) string {
	return strings.ToLower(strings.TrimSpace(recipient))
}

func (s *InboxSink) Deliver(ctx context.Context, item InboxItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}

	key := inboxKey(item.Recipient)
	inbox := append(s.inboxes[key], item)
	if len(inbox) > s.capacity {
		inbox = inbox[len(inbox)-s.capacity:]
	}
	s.inboxes[key] = inbox

	s.logger.Info("system notification delivered",
		slog.String("request_id", logging.RequestIDFromContext(ctx)),
		slog.String("notification_id", item.NotificationID),
		slog.String("recipient", item.Recipient),
		slog.String("title", item.Title))
	return nil
}

// Inbox returns a copy of the recipient's items, oldest first.
func (s *InboxSink) Inbox(recipient string) []InboxItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.inboxes[inboxKey(recipient)]
	out := make([]InboxItem, len(items))
	copy(out, items)
	return out
}

// Close rejects further deliveries. Stored items stay readable.
func (s *InboxSink) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
