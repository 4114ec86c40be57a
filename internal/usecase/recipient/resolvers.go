package recipient

import (
	"context"
	"fmt"

	"research-notify/internal/domain/entity"
	"research-notify/internal/repository"
)

// ExternalResolver accepts an inline email and name without any lookup.
type ExternalResolver struct{}

func (ExternalResolver) Resolve(_ context.Context, t Target) (entity.Recipient, error) {
	if t.Email == "" {
		return entity.Recipient{}, &entity.ValidationError{
			Field:   "recipientEmail",
			Message: "is required for external recipients",
		}
	}
	if t.Name == "" {
		return entity.Recipient{}, &entity.ValidationError{
			Field:   "recipientName",
			Message: "is required for external recipients",
		}
	}
	return entity.Recipient{Email: t.Email, Name: t.Name}, nil
}

// LookupResolver loads a record by id and derives the identity from it.
type LookupResolver[T any] struct {
	category entity.RecipientCategory
	get      func(ctx context.Context, id string) (*T, error)
	identity func(*T) (email, name string)
}

func (r *LookupResolver[T]) Resolve(ctx context.Context, t Target) (entity.Recipient, error) {
	if t.ID == "" {
		return entity.Recipient{}, &entity.ValidationError{Field: "recipientId", Message: "is required"}
	}

	rec, err := r.get(ctx, t.ID)
	if err != nil {
		return entity.Recipient{}, fmt.Errorf("load %s %s: %w", r.category, t.ID, err)
	}
	if rec == nil {
		return entity.Recipient{}, &entity.NotFoundError{Kind: string(r.category), ID: t.ID}
	}

	email, name := r.identity(rec)
	if email == "" {
		return entity.Recipient{}, &entity.ValidationError{
			Field:   "recipientEmail",
			Message: fmt.Sprintf("%s %s has no email address", r.category, t.ID),
		}
	}
	return entity.Recipient{ID: t.ID, Email: email, Name: name}, nil
}

// firstNonEmpty returns the primary value, or the fallback when primary is empty.
func firstNonEmpty(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

func NewUserResolver(repo repository.UserRepository) *LookupResolver[entity.User] {
	return &LookupResolver[entity.User]{
		category: entity.CategoryUser,
		get:      repo.Get,
		identity: func(u *entity.User) (string, string) { return u.Email, u.Name },
	}
}

func NewStudentResolver(repo repository.StudentRepository) *LookupResolver[entity.Student] {
	return &LookupResolver[entity.Student]{
		category: entity.CategoryStudent,
		get:      repo.Get,
		identity: func(s *entity.Student) (string, string) { return s.Email, s.FullName() },
	}
}

// NewExaminerResolver prefers the primary email and falls back to the secondary.
func NewExaminerResolver(repo repository.ExaminerRepository) *LookupResolver[entity.Examiner] {
	return &LookupResolver[entity.Examiner]{
		category: entity.CategoryExaminer,
		get:      repo.Get,
		identity: func(e *entity.Examiner) (string, string) {
			return firstNonEmpty(e.PrimaryEmail, e.SecondaryEmail), e.Name
		},
	}
}

// NewSupervisorResolver prefers the work email and falls back to the personal one.
func NewSupervisorResolver(repo repository.SupervisorRepository) *LookupResolver[entity.Supervisor] {
	return &LookupResolver[entity.Supervisor]{
		category: entity.CategorySupervisor,
		get:      repo.Get,
		identity: func(s *entity.Supervisor) (string, string) {
			return firstNonEmpty(s.WorkEmail, s.PersonalEmail), s.Name
		},
	}
}

func NewPanelistResolver(repo repository.PanelistRepository) *LookupResolver[entity.Panelist] {
	return &LookupResolver[entity.Panelist]{
		category: entity.CategoryPanelist,
		get:      repo.Get,
		identity: func(p *entity.Panelist) (string, string) { return p.Email, p.Name },
	}
}
