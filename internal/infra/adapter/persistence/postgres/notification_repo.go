package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"research-notify/internal/domain/entity"
	"research-notify/internal/repository"
)

const notificationColumns = `n.id, n.type, n.status, n.title, n.message,
n.recipient_category, n.recipient_email, n.recipient_name,
n.user_id, n.student_id, n.examiner_id, n.student_status_id,
n.scheduled_for, n.metadata, n.retry_count, n.sent_at, n.error,
n.created_at, n.updated_at`

type NotificationRepo struct {
	db  DBTX
	now func() time.Time
}

func NewNotificationRepo(db DBTX) repository.NotificationRepository {
	return &NotificationRepo{db: db, now: time.Now}
}

type scanner interface {
	Scan(dest ...any) error
}

type ownerColumns struct {
	user, student, examiner sql.NullString
}

func (o ownerColumns) ref() *entity.RecipientRef {
	switch {
	case o.user.Valid:
		return &entity.RecipientRef{Category: entity.CategoryUser, ID: o.user.String}
	case o.student.Valid:
		return &entity.RecipientRef{Category: entity.CategoryStudent, ID: o.student.String}
	case o.examiner.Valid:
		return &entity.RecipientRef{Category: entity.CategoryExaminer, ID: o.examiner.String}
	}
	return nil
}

// ownerArgs spreads the ownership link over the three foreign key columns.
func ownerArgs(ref *entity.RecipientRef) (user, student, examiner sql.NullString) {
	if ref == nil {
		return
	}
	v := sql.NullString{String: ref.ID, Valid: true}
	switch ref.Category {
	case entity.CategoryUser:
		user = v
	case entity.CategoryStudent:
		student = v
	case entity.CategoryExaminer:
		examiner = v
	}
	return
}

// scanNotification reads notificationColumns, optionally followed by the
// expanded student status columns.
func scanNotification(s scanner, withLink bool) (*entity.Notification, error) {
	var (
		n            entity.Notification
		owner        ownerColumns
		statusLinkID sql.NullString
		metadataJSON []byte
	)
	dest := []any{
		&n.ID, &n.Type, &n.Status, &n.Title, &n.Message,
		&n.RecipientCategory, &n.RecipientEmail, &n.RecipientName,
		&owner.user, &owner.student, &owner.examiner, &statusLinkID,
		&n.ScheduledFor, &metadataJSON, &n.RetryCount, &n.SentAt, &n.Error,
		&n.CreatedAt, &n.UpdatedAt,
	}

	var (
		linkID, linkStudentID, linkDefinition sql.NullString
		linkCurrent                           sql.NullBool
	)
	if withLink {
		dest = append(dest, &linkID, &linkStudentID, &linkDefinition, &linkCurrent)
	}

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	n.Owner = owner.ref()
	n.StatusLinkID = statusLinkID.String
	if linkID.Valid {
		n.StatusLink = &entity.StudentStatus{
			ID:         linkID.String,
			StudentID:  linkStudentID.String,
			Definition: linkDefinition.String,
			IsCurrent:  linkCurrent.Bool,
		}
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &n.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &n, nil
}

// marshalMetadata returns a JSONB argument, or SQL NULL for empty metadata.
func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (repo *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	metadataJSON, err := marshalMetadata(n.Metadata)
	if err != nil {
		return fmt.Errorf("Create: marshal metadata: %w", err)
	}

	if n.Status == "" {
		n.Status = entity.StatusPending
	}
	id := uuid.NewString()
	now := repo.now().UTC()
	user, student, examiner := ownerArgs(n.Owner)
	statusLink := sql.NullString{String: n.StatusLinkID, Valid: n.StatusLinkID != ""}

	const query = `
INSERT INTO notifications (
    id, type, status, title, message,
    recipient_category, recipient_email, recipient_name,
    user_id, student_id, examiner_id, student_status_id,
    scheduled_for, metadata, retry_count, sent_at, error,
    created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, NULL, '', $15, $15)`
	_, err = repo.db.ExecContext(ctx, query,
		id, string(n.Type), string(n.Status), n.Title, n.Message,
		string(n.RecipientCategory), n.RecipientEmail, n.RecipientName,
		user, student, examiner, statusLink,
		n.ScheduledFor, metadataJSON, now,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	n.ID = id
	n.RetryCount = 0
	n.SentAt = nil
	n.Error = ""
	n.CreatedAt = now
	n.UpdatedAt = now
	return nil
}

func (repo *NotificationRepo) Get(ctx context.Context, id string) (*entity.Notification, error) {
	query := `
SELECT ` + notificationColumns + `
FROM notifications n
WHERE n.id = $1
LIMIT 1`
	n, err := scanNotification(repo.db.QueryRowContext(ctx, query, id), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return n, nil
}

func (repo *NotificationRepo) GetWithStatusLink(ctx context.Context, id string) (*entity.Notification, error) {
	query := `
SELECT ` + notificationColumns + `,
ss.id, ss.student_id, ss.definition, ss.is_current
FROM notifications n
LEFT JOIN student_statuses ss ON ss.id = n.student_status_id
WHERE n.id = $1
LIMIT 1`
	n, err := scanNotification(repo.db.QueryRowContext(ctx, query, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetWithStatusLink: %w", err)
	}
	return n, nil
}

// buildUpdate renders the SET clause for the non-nil fields of u.
// Placeholders start at $1; the id is bound to the final placeholder.
func buildUpdate(u entity.NotificationUpdate) (string, []any) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 6)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.RetryCount != nil {
		add("retry_count", *u.RetryCount)
	}
	if u.ScheduledFor != nil {
		add("scheduled_for", *u.ScheduledFor)
	}
	if u.SentAt != nil {
		add("sent_at", *u.SentAt)
	}
	if u.Error != nil {
		add("error", *u.Error)
	}
	sets = append(sets, "updated_at = NOW()")

	return strings.Join(sets, ", "), args
}

func (repo *NotificationRepo) Update(ctx context.Context, id string, u entity.NotificationUpdate) error {
	set, args := buildUpdate(u)
	args = append(args, id)
	query := "UPDATE notifications SET " + set + " WHERE id = $" + strconv.Itoa(len(args))

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Update: %w", &entity.NotFoundError{Kind: "notification", ID: id})
	}
	return nil
}

// buildListQuery renders the WHERE clause of List from the filter predicates.
func buildListQuery(f entity.NotificationFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if f.Status != "" {
		add("n.status = ?", string(f.Status))
	}
	if !f.ScheduledFrom.IsZero() {
		add("n.scheduled_for >= ?", f.ScheduledFrom)
	}
	if !f.ScheduledBefore.IsZero() {
		add("n.scheduled_for < ?", f.ScheduledBefore)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(notificationColumns)
	b.WriteString("\nFROM notifications n")
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString("\nORDER BY n.scheduled_for ASC, n.id ASC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString("\nLIMIT $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func (repo *NotificationRepo) List(ctx context.Context, f entity.NotificationFilter) ([]*entity.Notification, error) {
	query, args := buildListQuery(f)
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notifications := make([]*entity.Notification, 0, 32)
	for rows.Next() {
		n, err := scanNotification(rows, false)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return notifications, nil
}
