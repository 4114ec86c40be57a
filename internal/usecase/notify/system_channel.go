package notify

import (
	"context"
	"time"

	"research-notify/internal/domain/entity"
	"research-notify/internal/infra/notifier"
)

// SystemChannel delivers SYSTEM notifications to the in-process sink.
// Deliveries only fail when the sink is unavailable.
type SystemChannel struct {
	sink notifier.Sink
	now  func() time.Time
}

// NewSystemChannel creates the SYSTEM channel. It is disabled when sink is nil.
func NewSystemChannel(sink notifier.Sink) *SystemChannel {
	return &SystemChannel{sink: sink, now: time.Now}
}

func (c *SystemChannel) Name() string {
	return "system"
}

func (c *SystemChannel) IsEnabled() bool {
	return c.sink != nil
}

func (c *SystemChannel) Send(ctx context.Context, n *entity.Notification, p Payload) error {
	if c.sink == nil {
		return ErrChannelDisabled
	}
	if n == nil {
		return ErrInvalidRequest
	}

	return c.sink.Deliver(ctx, notifier.InboxItem{
		NotificationID: n.ID,
		Recipient:      n.RecipientEmail,
		Title:          n.Title,
		Message:        n.Message,
		HTML:           p.HTML,
		DeliveredAt:    c.now(),
	})
}
