package postgres_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-notify/internal/domain/entity"
	"research-notify/internal/infra/adapter/persistence/postgres"
)

func TestUserRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WithArgs("U1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow("U1", "Registry Admin", "registry@example.ac.ug"))

	got, err := postgres.NewUserRepo(db).Get(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, &entity.User{ID: "U1", Name: "Registry Admin", Email: "registry@example.ac.ug"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM students`)).
		WithArgs("S1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "email"}).
			AddRow("S1", "Jane", "Doe", "jane@students.example.ac.ug"))

	got, err := postgres.NewStudentRepo(db).Get(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName())
	assert.Equal(t, "jane@students.example.ac.ug", got.Email)
}

func TestExaminerRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`COALESCE(primary_email, ''), COALESCE(secondary_email, '')`)).
		WithArgs("E1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "primary_email", "secondary_email"}).
			AddRow("E1", "Dr. Okello", "", "okello@gmail.com"))

	got, err := postgres.NewExaminerRepo(db).Get(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, &entity.Examiner{ID: "E1", Name: "Dr. Okello", SecondaryEmail: "okello@gmail.com"}, got)
}

func TestSupervisorRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM supervisors`)).
		WithArgs("SV1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "work_email", "personal_email"}).
			AddRow("SV1", "Prof. Namata", "namata@example.ac.ug", ""))

	got, err := postgres.NewSupervisorRepo(db).Get(context.Background(), "SV1")
	require.NoError(t, err)
	assert.Equal(t, "namata@example.ac.ug", got.WorkEmail)
}

func TestPanelistRepo_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM panelists`)).
		WithArgs("P404").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	got, err := postgres.NewPanelistRepo(db).Get(context.Background(), "P404")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestStudentStatusRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM student_statuses`)).
		WithArgs("ss-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "definition", "is_current"}).
			AddRow("ss-1", "S1", "Under Examination", true))

	got, err := postgres.NewStudentStatusRepo(db).Get(context.Background(), "ss-1")
	require.NoError(t, err)
	assert.True(t, got.IsCurrent)
	assert.Equal(t, "Under Examination", got.Definition)
}

func TestRecipientRepo_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WillReturnError(sql.ErrConnDone)

	got, err := postgres.NewUserRepo(db).Get(context.Background(), "U1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Nil(t, got)
}
