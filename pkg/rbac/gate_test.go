package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/contextkeys"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/storage"
	"github.com/platinummonkey/carelink/pkg/storage/memory"
)

// countingReader records lookups so admin bypass can be asserted
type countingReader struct {
	calls int
	set   *models.PermissionSet
	err   error
}

func (c *countingReader) GetPermissions(context.Context, int64) (*models.PermissionSet, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.set == nil {
		return nil, storage.ErrNotFound
	}
	return c.set, nil
}

func userPrincipal(id int64) *auth.Principal {
	return auth.StoredPrincipal(&models.User{ID: id, Role: models.RoleUser, IsActive: true})
}

func TestRequireAdmin(t *testing.T) {
	g := NewGate(&countingReader{})

	storedAdmin := auth.StoredPrincipal(&models.User{ID: 3, Role: models.RoleAdmin, IsActive: true})
	inactiveAdmin := auth.StoredPrincipal(&models.User{ID: 4, Role: models.RoleAdmin, IsActive: false})

	assert.NoError(t, g.RequireAdmin(auth.SentinelPrincipal()))
	assert.NoError(t, g.RequireAdmin(storedAdmin))
	assert.ErrorIs(t, g.RequireAdmin(userPrincipal(5)), apperr.ErrAdminRequired)
	assert.ErrorIs(t, g.RequireAdmin(inactiveAdmin), apperr.ErrAccountDisabled)
	assert.ErrorIs(t, g.RequireAdmin(nil), apperr.ErrTokenMissing)
}

func TestRequirePermission_AdminSkipsStore(t *testing.T) {
	reader := &countingReader{}
	g := NewGate(reader)

	for _, c := range models.AllCapabilities() {
		assert.NoError(t, g.RequirePermission(context.Background(), auth.SentinelPrincipal(), c))
	}
	assert.Zero(t, reader.calls)
}

func TestRequirePermission_MissingSetDeniesAll(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	g := NewGate(memory.NewStore(), WithMetrics(metrics))

	for _, c := range models.AllCapabilities() {
		err := g.RequirePermission(context.Background(), userPrincipal(99), c)
		require.Error(t, err, c)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
		assert.Equal(t, "You do not have permission to "+c.Description(), apperr.From(err).Message)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GateDenialsTotal.WithLabelValues("permission:manage-patients")))
}

func TestRequirePermission_Flags(t *testing.T) {
	reader := &countingReader{set: &models.PermissionSet{UserID: 5, CanManagePatients: true, CanViewMappings: true}}
	g := NewGate(reader)
	p := userPrincipal(5)

	tests := []struct {
		c       models.Capability
		allowed bool
	}{
		{models.CapManagePatients, true},
		{models.CapManageDoctors, false},
		{models.CapViewMappings, true},
		{models.CapCreateMappings, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			err := g.RequirePermission(context.Background(), p, tt.c)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
			}
		})
	}
}

func TestRequirePermission_StoreFailureIsInternal(t *testing.T) {
	g := NewGate(&countingReader{err: errors.New("connection reset")})
	err := g.RequirePermission(context.Background(), userPrincipal(1), models.CapManageDoctors)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestGuardSelfAction(t *testing.T) {
	g := NewGate(&countingReader{})
	assert.ErrorIs(t, g.GuardSelfAction(userPrincipal(5), 5), apperr.ErrSelfAction)
	assert.ErrorIs(t, g.GuardSelfAction(auth.SentinelPrincipal(), 0), apperr.ErrSelfAction)
	assert.NoError(t, g.GuardSelfAction(auth.SentinelPrincipal(), 5))
}

func TestGuardOwnership(t *testing.T) {
	g := NewGate(&countingReader{})
	five, six := int64(5), int64(6)

	assert.NoError(t, g.GuardOwnership(userPrincipal(5), &five))
	assert.ErrorIs(t, g.GuardOwnership(userPrincipal(5), &six), apperr.ErrAccessDenied)
	assert.ErrorIs(t, g.GuardOwnership(userPrincipal(5), nil), apperr.ErrAccessDenied)
	assert.NoError(t, g.GuardOwnership(auth.SentinelPrincipal(), nil))
}

func TestEffectivePermissions(t *testing.T) {
	g := NewGate(&countingReader{})

	admin, err := g.EffectivePermissions(context.Background(), auth.SentinelPrincipal())
	require.NoError(t, err)
	assert.Equal(t, models.FullPermissions(0), admin)

	none, err := g.EffectivePermissions(context.Background(), userPrincipal(8))
	require.NoError(t, err)
	for _, c := range models.AllCapabilities() {
		assert.False(t, none.Allows(c))
	}
}

func TestMiddleware(t *testing.T) {
	mw := NewMiddleware(NewGate(&countingReader{set: &models.PermissionSet{CanManageDoctors: true}}))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	serve := func(h http.Handler, p *auth.Principal) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(contextkeys.WithPrincipal(req.Context(), p))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, serve(mw.RequireAdmin()(ok), auth.SentinelPrincipal()))
	assert.Equal(t, http.StatusForbidden, serve(mw.RequireAdmin()(ok), userPrincipal(2)))
	assert.Equal(t, http.StatusOK, serve(mw.RequirePermission(models.CapManageDoctors)(ok), userPrincipal(2)))
	assert.Equal(t, http.StatusForbidden, serve(mw.RequirePermission(models.CapManagePatients)(ok), userPrincipal(2)))
}
