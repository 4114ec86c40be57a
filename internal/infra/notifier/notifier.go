// Package notifier provides the delivery transports behind the notification channels.
// It defines the Mailer interface for outbound email and the Sink interface for
// in-application (system) notifications, so channels can be wired to real or
// no-op transports through dependency injection.
//
// The package includes an SMTP mailer built on gomail, a bounded in-process
// inbox sink, a no-op mailer for when email is disabled, and a Slack webhook
// alerter used for operator alerts.
package notifier

import (
	"context"
	"time"
)

// Message is one rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Mailer sends rendered email messages.
// Implementations should handle rate limiting and error classification internally.
// They must not retry: the delivery engine owns the retry schedule.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// InboxItem is a system notification as stored by a Sink.
type InboxItem struct {
	NotificationID string
	Recipient      string
	Title          string
	Message        string
	HTML           string
	DeliveredAt    time.Time
}

// Sink accepts in-application notifications.
type Sink interface {
	Deliver(ctx context.Context, item InboxItem) error
}
