package recipient

import (
	"context"
	"fmt"

	"research-notify/internal/domain/entity"
	"research-notify/internal/repository"
)

// Target addresses a recipient. ID is used by every category except EXTERNAL,
// which carries Email and Name inline.
type Target struct {
	Category entity.RecipientCategory
	ID       string
	Email    string
	Name     string
}

// Resolver turns a target into a delivery identity.
type Resolver interface {
	Resolve(ctx context.Context, t Target) (entity.Recipient, error)
}

// Registry dispatches to the resolver registered for the target category.
type Registry struct {
	resolvers map[entity.RecipientCategory]Resolver
}

// Repositories are the recipient read ports the default registry resolves against.
type Repositories struct {
	Users       repository.UserRepository
	Students    repository.StudentRepository
	Examiners   repository.ExaminerRepository
	Supervisors repository.SupervisorRepository
	Panelists   repository.PanelistRepository
}

// NewRegistry registers the resolver for every category backed by a non-nil
// repository, plus the external resolver.
func NewRegistry(repos Repositories) *Registry {
	r := &Registry{resolvers: make(map[entity.RecipientCategory]Resolver, 6)}
	r.Register(entity.CategoryExternal, ExternalResolver{})
	if repos.Users != nil {
		r.Register(entity.CategoryUser, NewUserResolver(repos.Users))
	}
	if repos.Students != nil {
		r.Register(entity.CategoryStudent, NewStudentResolver(repos.Students))
	}
	if repos.Examiners != nil {
		r.Register(entity.CategoryExaminer, NewExaminerResolver(repos.Examiners))
	}
	if repos.Supervisors != nil {
		r.Register(entity.CategorySupervisor, NewSupervisorResolver(repos.Supervisors))
	}
	if repos.Panelists != nil {
		r.Register(entity.CategoryPanelist, NewPanelistResolver(repos.Panelists))
	}
	return r
}

// Register installs res for category, replacing any previous resolver.
func (r *Registry) Register(category entity.RecipientCategory, res Resolver) {
	r.resolvers[category] = res
}

func (r *Registry) Resolve(ctx context.Context, t Target) (entity.Recipient, error) {
	if t.Category == "" {
		return entity.Recipient{}, &entity.ValidationError{Field: "recipientCategory", Message: "is required"}
	}
	res, ok := r.resolvers[t.Category]
	if !ok {
		return entity.Recipient{}, &entity.ValidationError{
			Field:   "recipientCategory",
			Message: fmt.Sprintf("%s: %s", ErrNoResolver.Error(), t.Category),
		}
	}
	return res.Resolve(ctx, t)
}
