package notify

import (
	"errors"
	"fmt"
)

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrNoChannel indicates that no channel is registered for the notification type.
	ErrNoChannel = errors.New("no channel registered for notification type")

	// ErrSchedulerStopped is returned once the engine has been shut down.
	ErrSchedulerStopped = errors.New("scheduler stopped")

	// ErrInvalidTransition indicates a status change the notification state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid notification status transition")

	// ErrInvalidRequest indicates a malformed scheduling request. It is joined
	// with an *entity.ValidationError naming the offending field.
	ErrInvalidRequest = errors.New("invalid notification request")
)

// DeliveryError reports a failed dispatch attempt. It is never returned to
// schedulers of a notification; its message is persisted into the record's
// error field and the retry policy decides what happens next.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
