package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"research-notify/internal/domain/entity"
	"research-notify/internal/repository"
)

// Recipient tables belong to the CRUD layer; these adapters only read them.
// Optional email columns are coalesced to "" so resolvers see one shape.

type UserRepo struct{ db DBTX }

func NewUserRepo(db DBTX) repository.UserRepository {
	return &UserRepo{db: db}
}

func (repo *UserRepo) Get(ctx context.Context, id string) (*entity.User, error) {
	const query = `
SELECT id, name, email
FROM users
WHERE id = $1
LIMIT 1`
	var u entity.User
	err := repo.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &u, nil
}

type StudentRepo struct{ db DBTX }

func NewStudentRepo(db DBTX) repository.StudentRepository {
	return &StudentRepo{db: db}
}

func (repo *StudentRepo) Get(ctx context.Context, id string) (*entity.Student, error) {
	const query = `
SELECT id, first_name, last_name, email
FROM students
WHERE id = $1
LIMIT 1`
	var s entity.Student
	err := repo.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &s, nil
}

type ExaminerRepo struct{ db DBTX }

func NewExaminerRepo(db DBTX) repository.ExaminerRepository {
	return &ExaminerRepo{db: db}
}

func (repo *ExaminerRepo) Get(ctx context.Context, id string) (*entity.Examiner, error) {
	const query = `
SELECT id, name, COALESCE(primary_email, ''), COALESCE(secondary_email, '')
FROM examiners
WHERE id = $1
LIMIT 1`
	var e entity.Examiner
	err := repo.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.PrimaryEmail, &e.SecondaryEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &e, nil
}

type SupervisorRepo struct{ db DBTX }

func NewSupervisorRepo(db DBTX) repository.SupervisorRepository {
	return &SupervisorRepo{db: db}
}

func (repo *SupervisorRepo) Get(ctx context.Context, id string) (*entity.Supervisor, error) {
	const query = `
SELECT id, name, COALESCE(work_email, ''), COALESCE(personal_email, '')
FROM supervisors
WHERE id = $1
LIMIT 1`
	var s entity.Supervisor
	err := repo.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Name, &s.WorkEmail, &s.PersonalEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &s, nil
}

type PanelistRepo struct{ db DBTX }

func NewPanelistRepo(db DBTX) repository.PanelistRepository {
	return &PanelistRepo{db: db}
}

func (repo *PanelistRepo) Get(ctx context.Context, id string) (*entity.Panelist, error) {
	const query = `
SELECT id, name, COALESCE(email, '')
FROM panelists
WHERE id = $1
LIMIT 1`
	var p entity.Panelist
	err := repo.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &p, nil
}

type StudentStatusRepo struct{ db DBTX }

func NewStudentStatusRepo(db DBTX) repository.StudentStatusRepository {
	return &StudentStatusRepo{db: db}
}

func (repo *StudentStatusRepo) Get(ctx context.Context, id string) (*entity.StudentStatus, error) {
	const query = `
SELECT id, student_id, definition, is_current
FROM student_statuses
WHERE id = $1
LIMIT 1`
	var s entity.StudentStatus
	err := repo.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.StudentID, &s.Definition, &s.IsCurrent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &s, nil
}
