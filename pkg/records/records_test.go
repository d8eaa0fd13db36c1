package records

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/rbac"
	"github.com/platinummonkey/carelink/pkg/storage/memory"
)

type fixture struct {
	svc   *Service
	store *memory.Store
	root  *auth.Principal
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		svc:   NewService(store, rbac.NewGate(store), opts),
		store: store,
		root:  auth.SentinelPrincipal(),
	}
}

// addUser stores a USER account with the given permissions (nil for no row)
func (f *fixture) addUser(t *testing.T, username string, perms *models.PermissionSet) *auth.Principal {
	t.Helper()
	u := &models.User{
		FirstName: username,
		LastName:  "Test",
		Username:  username,
		Email:     username + "@example.com",
		Role:      models.RoleUser,
		IsActive:  true,
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u, perms))
	return auth.StoredPrincipal(u)
}

func raw(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{`12`, 12, true},
		{`12.9`, 12, true},
		{`"7"`, 7, true},
		{`" 15 years"`, 15, true},
		{`"abc"`, 0, false},
		{`null`, 0, false},
		{``, 0, false},
		{`true`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := coerceInt(json.RawMessage(tt.in))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDoctorLifecycle(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.CreateDoctor(ctx, f.root, DoctorInput{Name: "Dr. House"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	d, err := f.svc.CreateDoctor(ctx, f.root, DoctorInput{Name: "Dr. House", Specialty: "Diagnostics", Experience: raw("20")})
	require.NoError(t, err)
	assert.Equal(t, 20, d.Experience)
	assert.Equal(t, "", d.Contact)

	d, err = f.svc.UpdateDoctor(ctx, f.root, d.ID, DoctorInput{Experience: raw("lots")})
	require.NoError(t, err)
	assert.Equal(t, "Dr. House", d.Name)
	assert.Equal(t, 0, d.Experience)

	_, err = f.svc.GetDoctor(ctx, f.root, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, f.svc.DeleteDoctor(ctx, f.root, d.ID))
	err = f.svc.DeleteDoctor(ctx, f.root, d.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestMissingPermissionSetDeniesAllGates(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.addUser(t, "noperms", nil)

	_, err := f.svc.CreatePatient(ctx, u, PatientInput{Name: "P", Age: raw(30), Disease: "Flu"})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	_, err = f.svc.CreateDoctor(ctx, u, DoctorInput{Name: "D", Specialty: "S"})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	_, err = f.svc.ListMappings(ctx, u)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	_, err = f.svc.CreateMapping(ctx, u, MappingInput{PatientID: raw(1), DoctorID: raw(1)})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	assert.Equal(t, "You do not have permission to create mappings", apperr.From(err).Message)
}

func TestPatientVisibilityRoundTrip(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.addUser(t, "u1", models.FullPermissions(0))
	u2 := f.addUser(t, "u2", models.FullPermissions(0))

	p, err := f.svc.CreatePatient(ctx, u, PatientInput{Name: "Alice", Age: raw(41), Disease: "Asthma"})
	require.NoError(t, err)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, u.ID, *p.CreatedBy)

	list, err := f.svc.ListPatients(ctx, u)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	list, err = f.svc.ListPatients(ctx, u2)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.ListPatients(ctx, f.root)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.GetPatient(ctx, u2, p.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	got, err := f.svc.GetPatient(ctx, u, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestCreatePatient_Validation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.CreatePatient(ctx, f.root, PatientInput{Name: "Alice", Disease: "Flu"})
	require.Error(t, err)
	assert.Equal(t, "Name, age, and disease are required", apperr.From(err).Message)

	_, err = f.svc.CreatePatient(ctx, f.root, PatientInput{Name: "Alice", Age: raw(-1), Disease: "Flu"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	p, err := f.svc.CreatePatient(ctx, f.root, PatientInput{Name: "Alice", Age: raw("33"), Disease: "Flu"})
	require.NoError(t, err)
	assert.Equal(t, 33, p.Age)
	assert.Nil(t, p.CreatedBy, "sentinel-created patients have no creator")
}

func TestOwnershipEnforcement(t *testing.T) {
	ctx := context.Background()

	for _, enforce := range []bool{false, true} {
		f := newFixture(t, Options{EnforceOwnership: enforce})
		u := f.addUser(t, "u1", models.FullPermissions(0))
		u2 := f.addUser(t, "u2", models.FullPermissions(0))

		p, err := f.svc.CreatePatient(ctx, u, PatientInput{Name: "Alice", Age: raw(41), Disease: "Asthma"})
		require.NoError(t, err)

		_, err = f.svc.UpdatePatient(ctx, u2, p.ID, PatientInput{Disease: "Cold"})
		if enforce {
			assert.True(t, errors.Is(err, apperr.ErrAccessDenied))
		} else {
			assert.NoError(t, err)
		}

		_, err = f.svc.UpdatePatient(ctx, f.root, p.ID, PatientInput{Disease: "Cold"})
		assert.NoError(t, err, "admins are never restricted")
	}
}

func TestCreateMapping_UnknownReferences(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	d, err := f.svc.CreateDoctor(ctx, f.root, DoctorInput{Name: "D", Specialty: "S"})
	require.NoError(t, err)
	p, err := f.svc.CreatePatient(ctx, f.root, PatientInput{Name: "P", Age: raw(1), Disease: "X"})
	require.NoError(t, err)

	_, err = f.svc.CreateMapping(ctx, f.root, MappingInput{PatientID: raw(999), DoctorID: raw(d.ID)})
	require.Error(t, err)
	assert.Equal(t, "Patient not found", apperr.From(err).Message)

	_, err = f.svc.CreateMapping(ctx, f.root, MappingInput{PatientID: raw(p.ID), DoctorID: raw(999)})
	require.Error(t, err)
	assert.Equal(t, "Doctor not found", apperr.From(err).Message)

	n, err := f.store.CountMappings(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.CreateMapping(ctx, f.root, MappingInput{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestMappingsScopedAndLabelled(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.addUser(t, "u1", models.FullPermissions(0))

	d, err := f.svc.CreateDoctor(ctx, f.root, DoctorInput{Name: "D", Specialty: "S"})
	require.NoError(t, err)
	p, err := f.svc.CreatePatient(ctx, u, PatientInput{Name: "P", Age: raw(1), Disease: "X"})
	require.NoError(t, err)

	_, err = f.svc.CreateMapping(ctx, f.root, MappingInput{PatientID: raw(p.ID), DoctorID: raw(d.ID)})
	require.NoError(t, err)
	mine, err := f.svc.CreateMapping(ctx, u, MappingInput{PatientID: raw(p.ID), DoctorID: raw(d.ID)})
	require.NoError(t, err)

	list, err := f.svc.ListMappings(ctx, u)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
	assert.Equal(t, "u1 Test", list[0].UserName)

	list, err = f.svc.ListMappings(ctx, f.root)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Unknown", list[1].UserName)

	all, err := f.svc.AllMappings(ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, "N/A", all[1].UserName)

	doctors, err := f.svc.DoctorsForPatient(ctx, u, p.ID)
	require.NoError(t, err)
	assert.Len(t, doctors, 2)

	require.NoError(t, f.svc.DeletePatient(ctx, f.root, p.ID))
	n, err := f.store.CountMappings(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "deleting a patient removes its mappings")
}

func TestUpdateMapping_RevalidatesReferences(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	d, err := f.svc.CreateDoctor(ctx, f.root, DoctorInput{Name: "D", Specialty: "S"})
	require.NoError(t, err)
	p, err := f.svc.CreatePatient(ctx, f.root, PatientInput{Name: "P", Age: raw(1), Disease: "X"})
	require.NoError(t, err)
	m, err := f.svc.CreateMapping(ctx, f.root, MappingInput{PatientID: raw(p.ID), DoctorID: raw(d.ID)})
	require.NoError(t, err)

	_, err = f.svc.UpdateMapping(ctx, f.root, m.ID, MappingInput{DoctorID: raw(999)})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	d2, err := f.svc.CreateDoctor(ctx, f.root, DoctorInput{Name: "D2", Specialty: "S"})
	require.NoError(t, err)
	m, err = f.svc.UpdateMapping(ctx, f.root, m.ID, MappingInput{DoctorID: raw(d2.ID)})
	require.NoError(t, err)
	assert.Equal(t, d2.ID, m.DoctorID)
	assert.Equal(t, p.ID, m.PatientID)
}

func TestAdminUserListings(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	u := f.addUser(t, "u1", models.FullPermissions(0))

	_, err := f.svc.CreatePatient(ctx, u, PatientInput{Name: "P", Age: raw(1), Disease: "X"})
	require.NoError(t, err)

	patients, err := f.svc.UserPatients(ctx, f.root, u.ID)
	require.NoError(t, err)
	assert.Len(t, patients, 1)

	_, err = f.svc.UserMappings(ctx, f.root, 999)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = f.svc.AllPatients(ctx, u)
	assert.True(t, errors.Is(err, apperr.ErrAdminRequired))
}
