package notify

import (
	"context"

	"research-notify/internal/domain/entity"
	"research-notify/internal/infra/notifier"
)

const reminderSubjectPrefix = "REMINDER: "

// EmailChannel sends the rendered HTML to the recipient's email address.
// The same type backs the REMINDER channel, which only differs in its subject.
type EmailChannel struct {
	name          string
	mailer        notifier.Mailer
	enabled       bool
	subjectPrefix string
}

// NewEmailChannel creates the EMAIL channel. A nil mailer is replaced by a
// NoOpMailer so the channel never holds a nil transport.
func NewEmailChannel(mailer notifier.Mailer, enabled bool) *EmailChannel {
	if mailer == nil {
		mailer = notifier.NewNoOpMailer()
	}
	return &EmailChannel{name: "email", mailer: mailer, enabled: enabled}
}

// NewReminderChannel creates the REMINDER channel: email with the subject
// prefixed by "REMINDER: ".
func NewReminderChannel(mailer notifier.Mailer, enabled bool) *EmailChannel {
	c := NewEmailChannel(mailer, enabled)
	c.name = "reminder"
	c.subjectPrefix = reminderSubjectPrefix
	return c
}

func (c *EmailChannel) Name() string {
	return c.name
}

func (c *EmailChannel) IsEnabled() bool {
	return c.enabled
}

// Send hands one message to the mailer.
//
// Returns:
//   - nil: Relay accepted the message
//   - ErrChannelDisabled: If called on disabled channel
//   - ErrInvalidRequest: If n is nil or has no recipient address
//   - Transport errors from the mailer (SMTP replies, breaker open, timeouts)
func (c *EmailChannel) Send(ctx context.Context, n *entity.Notification, p Payload) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if n == nil || n.RecipientEmail == "" {
		return ErrInvalidRequest
	}

	return c.mailer.Send(ctx, notifier.Message{
		To:      n.RecipientEmail,
		ToName:  n.RecipientName,
		Subject: c.subjectPrefix + n.Title,
		HTML:    p.HTML,
	})
}

// CircuitOpen reports the mailer's breaker state when it exposes one.
func (c *EmailChannel) CircuitOpen() bool {
	if hr, ok := c.mailer.(HealthReporter); ok {
		return hr.CircuitOpen()
	}
	return false
}
