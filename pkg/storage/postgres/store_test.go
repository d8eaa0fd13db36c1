package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

var userCols = []string{"id", "first_name", "last_name", "username", "email", "password_hash",
	"role", "is_active", "contact", "created_by", "created_at", "updated_at"}

func TestCreateUser_WithPermissions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Jane", "Doe", "jane_doe", "jane@example.com", "hash", "USER", true, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))
	mock.ExpectQuery("INSERT INTO permissions").
		WithArgs(int64(7), true, false, true, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	u := &models.User{FirstName: "Jane", LastName: "Doe", Username: "jane_doe", Email: "jane@example.com",
		PasswordHash: "hash", Role: models.RoleUser, IsActive: true}
	perms := &models.PermissionSet{CanManagePatients: true, CanViewMappings: true}

	require.NoError(t, store.CreateUser(context.Background(), u, perms))
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, int64(7), perms.UserID)
	assert.Equal(t, int64(3), perms.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})
	mock.ExpectRollback()

	u := &models.User{FirstName: "Jane", LastName: "Doe", Username: "jane_doe", Email: "jane@example.com", Role: models.RoleUser}
	err := store.CreateUser(context.Background(), u, nil)

	field, ok := storage.DuplicateField(err)
	require.True(t, ok)
	assert.Equal(t, "username", field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	mock.ExpectRollback()

	err := store.CreateUser(context.Background(), &models.User{Role: models.RoleUser}, nil)
	field, _ := storage.DuplicateField(err)
	assert.Equal(t, "email", field)
}

func TestGetUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(5, "Jane", "Doe", "jane_doe", "jane@example.com", "hash", "ADMIN", true, "555-0100", 1, now, now))

	u, err := store.GetUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	require.NotNil(t, u.Contact)
	assert.Equal(t, "555-0100", *u.Contact)
	require.NotNil(t, u.CreatedBy)
	assert.Equal(t, int64(1), *u.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetPermissions_Missing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM permissions").
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetPermissions(context.Background(), 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPermissions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE")).
		WithArgs(int64(4), true, true, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	perms := &models.PermissionSet{UserID: 4, CanManagePatients: true, CanManageDoctors: true}
	require.NoError(t, store.UpsertPermissions(context.Background(), perms))
	assert.Equal(t, int64(12), perms.ID)
}

func TestDeleteUser_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM users WHERE id = \\$1").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteUser(context.Background(), 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCountUsers(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT(.+)COUNT(.+)FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "admins"}).AddRow(10, 8, 2))

	c, err := store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.UserCounts{Total: 10, Active: 8, Admins: 2}, c)
}

func TestCreateMapping_UnknownReference(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO mappings").
		WithArgs(int64(1), int64(99), nil).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "mappings_doctor_id_fkey"})

	err := store.CreateMapping(context.Background(), &models.Mapping{PatientID: 1, DoctorID: 99})
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestListPatients_Scoped(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("FROM patients p LEFT JOIN users u ON u.id = p.created_by WHERE p.created_by = \\$1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age", "disease", "contact", "created_by",
			"created_at", "updated_at", "user_name", "user_username"}).
			AddRow(1, "Pat", 30, "flu", nil, 3, now, now, "Jane Doe", "jane_doe"))

	views, err := store.ListPatients(context.Background(), &models.PatientScope{CreatedBy: 3})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Jane Doe", views[0].UserName)
	assert.Nil(t, views[0].Contact)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMappings_NullSafe(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	cols := []string{"m.id", "m.patient_id", "m.doctor_id", "m.created_by", "m.created_at",
		"p.id", "p.name", "p.age", "p.disease", "p.contact", "p.created_by", "p.created_at", "p.updated_at",
		"d.id", "d.name", "d.specialty", "d.experience", "d.contact", "d.created_at", "d.updated_at",
		"u.id", "u.username", "u.first_name", "u.last_name", "u.email"}
	mock.ExpectQuery("FROM mappings m").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			1, 2, 3, nil, now,
			2, "Pat", 30, "flu", nil, nil, now, now,
			nil, nil, nil, nil, nil, nil, nil,
			nil, nil, nil, nil, nil,
		))

	views, err := store.ListMappings(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.NotNil(t, views[0].Patient)
	assert.Nil(t, views[0].Doctor)
	assert.Nil(t, views[0].User)
	assert.Nil(t, views[0].CreatedBy)
}

func TestRunMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS issue_requests").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(4, "Create issue requests table").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillMappingCreators(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE mappings").WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.BackfillMappingCreators(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
