package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-notify/internal/domain/entity"
	"research-notify/internal/infra/adapter/persistence/memory"
)

func TestDirectory_Views(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewDirectory()
	dir.PutUser(entity.User{ID: "U1", Name: "Admin", Email: "admin@example.ac.ug"})
	dir.PutStudent(entity.Student{ID: "S1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.ac.ug"})
	dir.PutExaminer(entity.Examiner{ID: "E1", Name: "Dr. Okello", PrimaryEmail: "okello@example.ac.ug"})
	dir.PutSupervisor(entity.Supervisor{ID: "SV1", Name: "Prof. Namata", PersonalEmail: "namata@gmail.com"})
	dir.PutPanelist(entity.Panelist{ID: "P1", Name: "Dr. Achieng", Email: "achieng@example.ac.ug"})

	u, err := dir.Users().Get(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Admin", u.Name)

	s, err := dir.Students().Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", s.FullName())

	e, err := dir.Examiners().Get(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "okello@example.ac.ug", e.PrimaryEmail)

	sv, err := dir.Supervisors().Get(ctx, "SV1")
	require.NoError(t, err)
	assert.Equal(t, "namata@gmail.com", sv.PersonalEmail)

	p, err := dir.Panelists().Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Achieng", p.Name)

	missing, err := dir.Students().Get(ctx, "S404")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDirectory_PutStudentStatus_SupersedesCurrent(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewDirectory()
	dir.PutStudentStatus(entity.StudentStatus{ID: "ss-1", StudentID: "S1", IsCurrent: true})
	dir.PutStudentStatus(entity.StudentStatus{ID: "other", StudentID: "S2", IsCurrent: true})
	dir.PutStudentStatus(entity.StudentStatus{ID: "ss-2", StudentID: "S1", IsCurrent: true})

	first, err := dir.StudentStatuses().Get(ctx, "ss-1")
	require.NoError(t, err)
	assert.False(t, first.IsCurrent)

	second, err := dir.StudentStatuses().Get(ctx, "ss-2")
	require.NoError(t, err)
	assert.True(t, second.IsCurrent)

	other, err := dir.StudentStatuses().Get(ctx, "other")
	require.NoError(t, err)
	assert.True(t, other.IsCurrent)
}
