// Package entity defines the core domain entities of the notification engine.
// It contains the Notification record with its lifecycle rules, the recipient
// source records it is addressed from, and the domain-specific errors.
package entity

import (
	"fmt"
	"time"
)

// NotificationType selects the channel a notification is delivered through.
type NotificationType string

const (
	TypeEmail    NotificationType = "EMAIL"
	TypeSystem   NotificationType = "SYSTEM"
	TypeReminder NotificationType = "REMINDER"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeEmail, TypeSystem, TypeReminder:
		return true
	}
	return false
}

// NotificationStatus is the lifecycle state of a notification.
type NotificationStatus string

const (
	StatusPending   NotificationStatus = "PENDING"
	StatusSent      NotificationStatus = "SENT"
	StatusCancelled NotificationStatus = "CANCELLED"
	StatusFailed    NotificationStatus = "FAILED"
)

// Terminal reports whether no further transitions may leave s.
func (s NotificationStatus) Terminal() bool {
	return s == StatusSent || s == StatusCancelled || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s NotificationStatus) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// RecipientCategory is the kind of addressable party a notification targets.
type RecipientCategory string

const (
	CategoryUser       RecipientCategory = "USER"
	CategoryStudent    RecipientCategory = "STUDENT"
	CategoryExaminer   RecipientCategory = "EXAMINER"
	CategorySupervisor RecipientCategory = "SUPERVISOR"
	CategoryPanelist   RecipientCategory = "PANELIST"
	CategoryExternal   RecipientCategory = "EXTERNAL"
)

// Owned reports whether notifications for this category carry a strong
// ownership link to the recipient record. Only users, students and examiners do.
func (c RecipientCategory) Owned() bool {
	return c == CategoryUser || c == CategoryStudent || c == CategoryExaminer
}

// RecipientRef is the ownership link from a notification to the recipient record.
type RecipientRef struct {
	Category RecipientCategory
	ID       string
}

// MetadataAdditionalContent is the metadata key rendered into the extension region.
const MetadataAdditionalContent = "additionalContent"

// Notification is the persisted record of one scheduled or delivered message.
//
// RecipientEmail and RecipientName are a denormalized copy resolved at creation
// and never re-resolved. Only the status link is re-checked at fire time.
type Notification struct {
	ID                string
	Type              NotificationType
	Status            NotificationStatus
	Title             string
	Message           string
	RecipientCategory RecipientCategory
	RecipientEmail    string
	RecipientName     string
	Owner             *RecipientRef
	StatusLinkID      string
	StatusLink        *StudentStatus // populated only when read with the link expanded
	ScheduledFor      time.Time
	Metadata          map[string]any
	RetryCount        int
	SentAt            *time.Time
	Error             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AdditionalContent returns metadata.additionalContent, or "" when absent or not a string.
func (n *Notification) AdditionalContent() string {
	if n.Metadata == nil {
		return ""
	}
	s, _ := n.Metadata[MetadataAdditionalContent].(string)
	return s
}

// HasStatusLink reports whether delivery depends on a student status record.
func (n *Notification) HasStatusLink() bool {
	return n.StatusLinkID != ""
}

// StatusLinkCurrent reports whether the linked student status is still current.
// A link whose target is gone counts as not current. Notifications without a
// link are always current.
func (n *Notification) StatusLinkCurrent() bool {
	if !n.HasStatusLink() {
		return true
	}
	return n.StatusLink != nil && n.StatusLink.IsCurrent
}

// CanTransition reports whether moving from the current status to next is allowed.
// PENDING may move anywhere, including back to PENDING for a retry reschedule.
// Terminal states only accept CANCELLED, which cancellation applies unconditionally.
func (n *Notification) CanTransition(next NotificationStatus) bool {
	if n.Status == StatusPending {
		return next.Valid()
	}
	return next == StatusCancelled
}

// NotificationUpdate is a partial merge applied by the store.
// Nil fields are left unchanged.
type NotificationUpdate struct {
	Status       *NotificationStatus
	RetryCount   *int
	ScheduledFor *time.Time
	SentAt       *time.Time
	Error        *string
}

// Empty reports whether the update changes nothing.
func (u NotificationUpdate) Empty() bool {
	return u.Status == nil && u.RetryCount == nil && u.ScheduledFor == nil &&
		u.SentAt == nil && u.Error == nil
}

// Apply merges the update into n in place.
func (u NotificationUpdate) Apply(n *Notification) {
	if u.Status != nil {
		n.Status = *u.Status
	}
	if u.RetryCount != nil {
		n.RetryCount = *u.RetryCount
	}
	if u.ScheduledFor != nil {
		n.ScheduledFor = *u.ScheduledFor
	}
	if u.SentAt != nil {
		t := *u.SentAt
		n.SentAt = &t
	}
	if u.Error != nil {
		n.Error = *u.Error
	}
}

// NotificationFilter selects notifications for List.
// Zero values disable the corresponding predicate.
type NotificationFilter struct {
	Status          NotificationStatus
	ScheduledFrom   time.Time // inclusive
	ScheduledBefore time.Time // exclusive
	Limit           int
}

// Matches reports whether n satisfies every predicate set on f.
func (f NotificationFilter) Matches(n *Notification) bool {
	if f.Status != "" && n.Status != f.Status {
		return false
	}
	if !f.ScheduledFrom.IsZero() && n.ScheduledFor.Before(f.ScheduledFrom) {
		return false
	}
	if !f.ScheduledBefore.IsZero() && !n.ScheduledFor.Before(f.ScheduledBefore) {
		return false
	}
	return true
}

// Ptr returns a pointer to v. It keeps NotificationUpdate literals short.
func Ptr[T any](v T) *T {
	return &v
}

func (n *Notification) String() string {
	return fmt.Sprintf("notification %s (%s to %s, %s)", n.ID, n.Type, n.RecipientEmail, n.Status)
}
