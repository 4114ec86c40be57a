package notifier

import "context"

// NoOpMailer discards every message. It stands in for the SMTP mailer when
// email delivery is disabled so the email channels never hold a nil transport.
type NoOpMailer struct{}

func NewNoOpMailer() *NoOpMailer {
	return &NoOpMailer{}
}

func (NoOpMailer) Send(context.Context, Message) error {
	return nil
}
