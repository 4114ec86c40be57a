package notify

import (
	"time"

	"research-notify/internal/resilience/retry"
)

// DefaultMaxRetries is the number of rescheduled attempts after the first failure.
const DefaultMaxRetries = 3

// RetryPolicy decides whether a failed delivery is rescheduled and when.
type RetryPolicy struct {
	MaxRetries int
	Backoff    retry.Config
}

// DefaultRetryPolicy retries three times, 2s, 4s and 8s after each failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Backoff:    retry.NotificationConfig(),
	}
}

// WithBaseDelay returns a copy of p whose first retry waits base. Later
// retries keep doubling.
func (p RetryPolicy) WithBaseDelay(base time.Duration) RetryPolicy {
	p.Backoff.InitialDelay = base
	return p
}

// Next takes the retry count of the attempt that just failed. When another
// attempt is allowed it returns the new retry count and the delay before it.
func (p RetryPolicy) Next(retryCount int) (next int, delay time.Duration, ok bool) {
	if retryCount >= p.MaxRetries {
		return retryCount, 0, false
	}
	next = retryCount + 1
	return next, retry.Backoff(p.Backoff, next), true
}
