//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// setupPostgres starts a disposable PostgreSQL container and returns a migrated store
func setupPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("carelink_test"),
		tcpostgres.WithUsername("carelink"),
		tcpostgres.WithPassword("carelink_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := storage.DefaultConfig()
	cfg.PostgresURL = connStr
	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(ctx, db, nil))
	return NewStore(db)
}

func TestIntegration_UserLifecycle(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	u := &models.User{FirstName: "Jane", LastName: "Doe", Username: "jane_doe", Email: "jane@example.com",
		PasswordHash: "hash", Role: models.RoleUser, IsActive: true}
	require.NoError(t, store.CreateUser(ctx, u, models.FullPermissions(0)))
	assert.Greater(t, u.ID, int64(0))

	dup := &models.User{FirstName: "Jane", LastName: "Doe", Username: "jane_doe", Email: "other@example.com",
		PasswordHash: "hash", Role: models.RoleUser, IsActive: true}
	field, ok := storage.DuplicateField(store.CreateUser(ctx, dup, nil))
	require.True(t, ok)
	assert.Equal(t, "username", field)

	contact := "555-0100"
	updated, err := store.UpdateUser(ctx, u.ID, models.UserUpdate{Contact: &contact})
	require.NoError(t, err)
	require.NotNil(t, updated.Contact)
	assert.Equal(t, contact, *updated.Contact)

	empty := ""
	updated, err = store.UpdateUser(ctx, u.ID, models.UserUpdate{Contact: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.Contact)

	p := &models.Patient{Name: "Pat", Age: 30, Disease: "flu", CreatedBy: &u.ID}
	require.NoError(t, store.CreatePatient(ctx, p))
	d := &models.Doctor{Name: "Doc", Specialty: "GP"}
	require.NoError(t, store.CreateDoctor(ctx, d))
	require.NoError(t, store.CreateMapping(ctx, &models.Mapping{PatientID: p.ID, DoctorID: d.ID, CreatedBy: &u.ID}))

	err = store.CreateMapping(ctx, &models.Mapping{PatientID: p.ID, DoctorID: d.ID + 100})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.DeleteDoctor(ctx, d.ID))
	n, err := store.CountMappings(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	got, err := store.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CreatedBy)

	_, err = store.GetPermissions(ctx, u.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
