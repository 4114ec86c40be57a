package db

import (
	"database/sql"
)

// The recipient and status tables belong to the CRUD layer. They are created
// IF NOT EXISTS so the worker can run against an empty database in development.
var recipientTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id    TEXT PRIMARY KEY,
    name  TEXT NOT NULL,
    email TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS students (
    id         TEXT PRIMARY KEY,
    first_name TEXT NOT NULL,
    last_name  TEXT NOT NULL,
    email      TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS examiners (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    primary_email   TEXT,
    secondary_email TEXT
)`,
	`CREATE TABLE IF NOT EXISTS supervisors (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    work_email     TEXT,
    personal_email TEXT
)`,
	`CREATE TABLE IF NOT EXISTS panelists (
    id    TEXT PRIMARY KEY,
    name  TEXT NOT NULL,
    email TEXT
)`,
	`CREATE TABLE IF NOT EXISTS student_statuses (
    id         TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    definition TEXT NOT NULL,
    is_current BOOLEAN NOT NULL DEFAULT FALSE
)`,
}

// student_status_id is a weak reference with no foreign key. The status row may
// be deleted; fire time treats a missing target as not current.
const notificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
    id                 UUID PRIMARY KEY,
    type               VARCHAR(20) NOT NULL,
    status             VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    title              TEXT NOT NULL,
    message            TEXT NOT NULL,
    recipient_category VARCHAR(20) NOT NULL,
    recipient_email    TEXT NOT NULL,
    recipient_name     TEXT NOT NULL,
    user_id            TEXT REFERENCES users(id) ON DELETE CASCADE,
    student_id         TEXT REFERENCES students(id) ON DELETE CASCADE,
    examiner_id        TEXT REFERENCES examiners(id) ON DELETE CASCADE,
    student_status_id  TEXT,
    scheduled_for      TIMESTAMPTZ NOT NULL,
    metadata           JSONB,
    retry_count        INTEGER NOT NULL DEFAULT 0,
    sent_at            TIMESTAMPTZ,
    error              TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_notification_type CHECK (type IN ('EMAIL', 'SYSTEM', 'REMINDER')),
    CONSTRAINT chk_notification_status CHECK (status IN ('PENDING', 'SENT', 'CANCELLED', 'FAILED'))
)`

var notificationIndexes = []string{
	// recovery and stale audit both scan PENDING by scheduled_for
	`CREATE INDEX IF NOT EXISTS idx_notifications_status_scheduled ON notifications(status, scheduled_for)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_student_status ON notifications(student_status_id) WHERE student_status_id IS NOT NULL`,
}

// MigrateUp creates the notification schema. Every statement is idempotent.
func MigrateUp(db *sql.DB) error {
	for _, stmt := range recipientTables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	if _, err := db.Exec(notificationsTable); err != nil {
		return err
	}

	for _, idx := range notificationIndexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the notifications table and its indexes.
// The recipient tables are left in place because the CRUD layer owns them.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_notifications_student_status`,
		`DROP INDEX IF EXISTS idx_notifications_status_scheduled`,
		`DROP TABLE IF EXISTS notifications CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
