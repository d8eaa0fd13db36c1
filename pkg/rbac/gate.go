package rbac

import (
	"context"
	"errors"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// PermissionReader loads a user's stored permission set
type PermissionReader interface {
	GetPermissions(ctx context.Context, userID int64) (*models.PermissionSet, error)
}

// Gate evaluates role, capability, self-action and ownership rules
type Gate struct {
	perms   PermissionReader
	metrics *observability.Metrics
}

// Option configures a Gate
type Option func(*Gate)

// WithMetrics counts denials per gate
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a gate backed by perms
func NewGate(perms PermissionReader, opts ...Option) *Gate {
	g := &Gate{perms: perms}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) deny(gate string, err error) error {
	g.metrics.RecordGateDenial(gate)
	return err
}

// RequireAdmin passes active admins, including the super-admin
func (g *Gate) RequireAdmin(p *auth.Principal) error {
	if p == nil {
		return g.deny("admin", apperr.ErrTokenMissing)
	}
	if !p.IsActive {
		return g.deny("admin", apperr.ErrAccountDisabled)
	}
	if p.Role != models.RoleAdmin {
		return g.deny("admin", apperr.ErrAdminRequired)
	}
	return nil
}

// RequirePermission checks one capability. Admins are allowed without a
// store lookup; users need a stored set with the flag on.
func (g *Gate) RequirePermission(ctx context.Context, p *auth.Principal, c models.Capability) error {
	gate := "permission:" + string(c)
	if p == nil {
		return g.deny(gate, apperr.ErrTokenMissing)
	}
	if !p.IsActive {
		return g.deny(gate, apperr.ErrAccountDisabled)
	}

	switch p.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleUser:
		set, err := g.perms.GetPermissions(ctx, p.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return g.deny(gate, apperr.PermissionDenied(c.Description()))
		}
		if err != nil {
			return apperr.Internal("load permissions", err)
		}
		if !set.Allows(c) {
			return g.deny(gate, apperr.PermissionDenied(c.Description()))
		}
		return nil
	default:
		return g.deny(gate, apperr.PermissionDenied(c.Description()))
	}
}

// GuardSelfAction rejects destructive actions a principal aims at itself
func (g *Gate) GuardSelfAction(p *auth.Principal, targetID int64) error {
	if p != nil && p.ID == targetID {
		return g.deny("self", apperr.ErrSelfAction)
	}
	return nil
}

// GuardOwnership allows admins, otherwise requires ownerID to be the caller
func (g *Gate) GuardOwnership(p *auth.Principal, ownerID *int64) error {
	if p == nil {
		return g.deny("ownership", apperr.ErrTokenMissing)
	}
	if p.IsAdmin() || p.Owns(ownerID) {
		return nil
	}
	return g.deny("ownership", apperr.ErrAccessDenied)
}

// EffectivePermissions is the permission set a client should see for p.
// Admins get everything; users get their stored set, or nothing when absent.
func (g *Gate) EffectivePermissions(ctx context.Context, p *auth.Principal) (*models.PermissionSet, error) {
	if p == nil {
		return nil, apperr.ErrTokenMissing
	}
	if p.IsAdmin() {
		return models.FullPermissions(p.ID), nil
	}
	set, err := g.perms.GetPermissions(ctx, p.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.PermissionSet{UserID: p.ID}, nil
	}
	if err != nil {
		return nil, apperr.Internal("load permissions", err)
	}
	return set, nil
}
