package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-notify/internal/domain/entity"
	"research-notify/internal/infra/adapter/persistence/memory"
)

func newNotification(at time.Time) *entity.Notification {
	return &entity.Notification{
		Type:              entity.TypeEmail,
		Title:             "Proposal Defense",
		Message:           "Your proposal defense is on Friday",
		RecipientCategory: entity.CategoryStudent,
		RecipientEmail:    "jane@students.example.ac.ug",
		RecipientName:     "Jane Doe",
		ScheduledFor:      at,
		Metadata:          map[string]any{"proposalId": "p1"},
	}
}

func TestNotificationRepo_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNotificationRepo(nil)

	n := newNotification(time.Now().Add(time.Hour))
	n.RetryCount = 7
	require.NoError(t, repo.Create(ctx, n))

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, entity.StatusPending, n.Status)
	assert.Equal(t, 0, n.RetryCount)

	got, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, got.Title)

	// returned records are copies
	got.Metadata["proposalId"] = "changed"
	again, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", again.Metadata["proposalId"])

	missing, err := repo.Get(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, 1, repo.Len())
}

func TestNotificationRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNotificationRepo(nil)

	n := newNotification(time.Now())
	require.NoError(t, repo.Create(ctx, n))

	sentAt := time.Now()
	require.NoError(t, repo.Update(ctx, n.ID, entity.NotificationUpdate{
		Status: entity.Ptr(entity.StatusSent),
		SentAt: &sentAt,
	}))

	got, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(sentAt))
	assert.Equal(t, "Proposal Defense", got.Title)

	err = repo.Update(ctx, "missing", entity.NotificationUpdate{Status: entity.Ptr(entity.StatusCancelled)})
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestNotificationRepo_GetWithStatusLink(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewDirectory()
	dir.PutStudentStatus(entity.StudentStatus{ID: "ss-1", StudentID: "S1", Definition: "Under Examination", IsCurrent: true})
	repo := memory.NewNotificationRepo(dir.StudentStatuses())

	n := newNotification(time.Now())
	n.StatusLinkID = "ss-1"
	require.NoError(t, repo.Create(ctx, n))

	got, err := repo.GetWithStatusLink(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StatusLink)
	assert.True(t, got.StatusLinkCurrent())

	// a newer status supersedes the linked one
	dir.PutStudentStatus(entity.StudentStatus{ID: "ss-2", StudentID: "S1", Definition: "Graduated", IsCurrent: true})
	got, err = repo.GetWithStatusLink(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.StatusLinkCurrent())

	dir.DeleteStudentStatus("ss-1")
	got, err = repo.GetWithStatusLink(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StatusLink)
	assert.False(t, got.StatusLinkCurrent())

	plain, err := repo.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, plain.StatusLink)
}

func TestNotificationRepo_List(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNotificationRepo(nil)
	now := time.Now()

	later := newNotification(now.Add(2 * time.Hour))
	sooner := newNotification(now.Add(time.Hour))
	past := newNotification(now.Add(-time.Hour))
	sent := newNotification(now.Add(3 * time.Hour))
	for _, n := range []*entity.Notification{later, sooner, past, sent} {
		require.NoError(t, repo.Create(ctx, n))
	}
	require.NoError(t, repo.Update(ctx, sent.ID, entity.NotificationUpdate{Status: entity.Ptr(entity.StatusSent)}))

	upcoming, err := repo.List(ctx, entity.NotificationFilter{Status: entity.StatusPending, ScheduledFrom: now})
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, sooner.ID, upcoming[0].ID)
	assert.Equal(t, later.ID, upcoming[1].ID)

	stale, err := repo.List(ctx, entity.NotificationFilter{Status: entity.StatusPending, ScheduledBefore: now})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, past.ID, stale[0].ID)

	limited, err := repo.List(ctx, entity.NotificationFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestNotificationRepo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := memory.NewNotificationRepo(nil)

	assert.ErrorIs(t, repo.Create(ctx, newNotification(time.Now())), context.Canceled)
	_, err := repo.List(ctx, entity.NotificationFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}
