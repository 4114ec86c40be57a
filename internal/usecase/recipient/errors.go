// Package recipient resolves a notification target into the email address and
// display name that will be stored on the notification and used for delivery.
// Each recipient category has its own resolver; the Registry selects one by tag.
package recipient

import "errors"

// ErrNoResolver indicates that no resolver is registered for the target's category.
var ErrNoResolver = errors.New("no resolver registered for recipient category")
