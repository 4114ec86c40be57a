package memory

import (
	"context"
	"sync"

	"research-notify/internal/domain/entity"
	"research-notify/internal/repository"
)

// Directory holds recipient records and student statuses for the memory store.
// Each accessor returns a read-only repository view over the shared maps.
type Directory struct {
	mu          sync.RWMutex
	users       map[string]entity.User
	students    map[string]entity.Student
	examiners   map[string]entity.Examiner
	supervisors map[string]entity.Supervisor
	panelists   map[string]entity.Panelist
	statuses    map[string]entity.StudentStatus
}

func NewDirectory() *Directory {
	return &Directory{
		users:       make(map[string]entity.User),
		students:    make(map[string]entity.Student),
		examiners:   make(map[string]entity.Examiner),
		supervisors: make(map[string]entity.Supervisor),
		panelists:   make(map[string]entity.Panelist),
		statuses:    make(map[string]entity.StudentStatus),
	}
}

func (d *Directory) PutUser(u entity.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *Directory) PutStudent(s entity.Student) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students[s.ID] = s
}

func (d *Directory) PutExaminer(e entity.Examiner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.examiners[e.ID] = e
}

func (d *Directory) PutSupervisor(s entity.Supervisor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supervisors[s.ID] = s
}

func (d *Directory) PutPanelist(p entity.Panelist) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.panelists[p.ID] = p
}

// PutStudentStatus records s. When s is current, every other status of the
// same student stops being current.
func (d *Directory) PutStudentStatus(s entity.StudentStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.IsCurrent {
		for id, other := range d.statuses {
			if other.StudentID == s.StudentID && other.IsCurrent {
				other.IsCurrent = false
				d.statuses[id] = other
			}
		}
	}
	d.statuses[s.ID] = s
}

func (d *Directory) DeleteStudentStatus(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.statuses, id)
}

func (d *Directory) Users() repository.UserRepository { return userView{d} }
func (d *Directory) Students() repository.StudentRepository { return studentView{d} }
func (d *Directory) Examiners() repository.ExaminerRepository { return examinerView{d} }
func (d *Directory) Supervisors() repository.SupervisorRepository { return supervisorView{d} }
func (d *Directory) Panelists() repository.PanelistRepository { return panelistView{d} }
func (d *Directory) StudentStatuses() repository.StudentStatusRepository {
	return statusView{d}
}

// lookup copies the record out of m under the read lock.
func lookup[T any](ctx context.Context, d *Directory, m map[string]T, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := m[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

type userView struct{ d *Directory }

func (v userView) Get(ctx context.Context, id string) (*entity.User, error) {
	return lookup(ctx, v.d, v.d.users, id)
}

type studentView struct{ d *Directory }

func (v studentView) Get(ctx context.Context, id string) (*entity.Student, error) {
	return lookup(ctx, v.d, v.d.students, id)
}

type examinerView struct{ d *Directory }

func (v examinerView) Get(ctx context.Context, id string) (*entity.Examiner, error) {
	return lookup(ctx, v.d, v.d.examiners, id)
}

type supervisorView struct{ d *Directory }

func (v supervisorView) Get(ctx context.Context, id string) (*entity.Supervisor, error) {
	return lookup(ctx, v.d, v.d.supervisors, id)
}

type panelistView struct{ d *Directory }

func (v panelistView) Get(ctx context.Context, id string) (*entity.Panelist, error) {
	return lookup(ctx, v.d, v.d.panelists, id)
}

type statusView struct{ d *Directory }

func (v statusView) Get(ctx context.Context, id string) (*entity.StudentStatus, error) {
	return lookup(ctx, v.d, v.d.statuses, id)
}
