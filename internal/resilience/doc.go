// Package resilience provides reliability and fault tolerance patterns for the notification engine.
// It includes circuit breakers and retry logic with exponential backoff.
//
// The package supports:
//   - Circuit breakers for the SMTP relay and the notification database
//   - Retry logic with exponential backoff and jitter
//   - The delivery retry schedule applied to failed notifications
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SMTPConfig())
//	_, err := cb.Execute(func() (interface{}, error) {
//	    return nil, dialer.DialAndSend(msg)
//	})
//
//	err = retry.WithBackoff(ctx, retry.DBConfig(), func() error {
//	    pending, err = repo.List(ctx, filter)
//	    return err
//	})
package resilience
