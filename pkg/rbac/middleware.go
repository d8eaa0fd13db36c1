package rbac

import (
	"net/http"

	"github.com/platinummonkey/carelink/pkg/httputil"
	"github.com/platinummonkey/carelink/pkg/middleware"
	"github.com/platinummonkey/carelink/pkg/models"
)

// Middleware exposes Gate checks as route middleware. It must run after
// middleware.AuthMiddleware.
type Middleware struct {
	gate *Gate
}

// NewMiddleware creates gate middleware
func NewMiddleware(gate *Gate) *Middleware {
	return &Middleware{gate: gate}
}

// RequireAdmin rejects callers that are not active admins
func (m *Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.gate.RequireAdmin(middleware.GetPrincipal(r)); err != nil {
				httputil.WriteAppError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission rejects callers lacking capability c
func (m *Middleware) RequirePermission(c models.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := m.gate.RequirePermission(r.Context(), middleware.GetPrincipal(r), c); err != nil {
				httputil.WriteAppError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
