package repository

import (
	"context"

	"research-notify/internal/domain/entity"
)

// Read-only views over the recipient records owned by the CRUD layer.
// Every Get returns nil, nil when the record does not exist.

type UserRepository interface {
	Get(ctx context.Context, id string) (*entity.User, error)
}

type StudentRepository interface {
	Get(ctx context.Context, id string) (*entity.Student, error)
}

type ExaminerRepository interface {
	Get(ctx context.Context, id string) (*entity.Examiner, error)
}

type SupervisorRepository interface {
	Get(ctx context.Context, id string) (*entity.Supervisor, error)
}

type PanelistRepository interface {
	Get(ctx context.Context, id string) (*entity.Panelist, error)
}
