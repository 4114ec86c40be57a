package notify

import (
	"context"
	"fmt"
	"time"

	"research-notify/internal/domain/entity"
)

// VivaDateLayout renders viva dates in notification messages.
const VivaDateLayout = "2 January 2006 15:04"

// Viva is the examination event viva notifications are built from.
type Viva struct {
	ID                   string
	Date                 time.Time
	StudentID            string
	Examiners            []VivaExaminer
	ExternalParticipants []VivaParticipant
}

// VivaExaminer is an examiner record assigned to the viva.
type VivaExaminer struct {
	ID   string
	Role string
}

// VivaParticipant is someone invited by email only.
type VivaParticipant struct {
	Email string
	Name  string
	Role  string
}

// VivaRequests builds one immediate EMAIL request for the student, one per
// examiner and one per external participant, in that order.
func VivaRequests(v Viva) []Request {
	date := v.Date.Format(VivaDateLayout)
	reqs := make([]Request, 0, 1+len(v.Examiners)+len(v.ExternalParticipants))

	reqs = append(reqs, Request{
		Type:              entity.TypeEmail,
		Title:             "Viva Scheduled",
		Message:           fmt.Sprintf("Your viva has been scheduled for %s", date),
		RecipientCategory: entity.CategoryStudent,
		RecipientID:       v.StudentID,
		Metadata:          map[string]any{"vivaId": v.ID},
	})

	for _, ex := range v.Examiners {
		reqs = append(reqs, Request{
			Type:              entity.TypeEmail,
			Title:             "Viva Examination Schedule",
			Message:           fmt.Sprintf("You have been scheduled to examine a viva on %s", date),
			RecipientCategory: entity.CategoryExaminer,
			RecipientID:       ex.ID,
			Metadata:          map[string]any{"vivaId": v.ID, "role": ex.Role},
		})
	}

	for _, p := range v.ExternalParticipants {
		reqs = append(reqs, Request{
			Type:              entity.TypeEmail,
			Title:             "Viva Examination Invitation",
			Message:           "You have been invited to participate in a viva examination",
			RecipientCategory: entity.CategoryExternal,
			RecipientEmail:    p.Email,
			RecipientName:     p.Name,
			Metadata:          map[string]any{"vivaId": v.ID, "role": p.Role},
		})
	}

	return reqs
}

// ScheduleVivaNotifications implements Service.ScheduleVivaNotifications.
func (e *Engine) ScheduleVivaNotifications(ctx context.Context, v Viva) []BulkResult {
	return e.ScheduleBulkNotifications(ctx, VivaRequests(v))
}
