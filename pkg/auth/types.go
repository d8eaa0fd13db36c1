package auth

import (
	"github.com/platinummonkey/carelink/pkg/models"
)

// SentinelID is reserved for the configured super-admin
const SentinelID int64 = 0

// Principal is the authenticated caller.
// For the sentinel User is nil; for stored users it holds the row read at
// verification time.
type Principal struct {
	ID       int64
	Role     models.Role
	IsActive bool
	User     *models.User
}

// SentinelPrincipal returns the synthetic super-admin
func SentinelPrincipal() *Principal {
	return &Principal{
		ID:       SentinelID,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
}

// StoredPrincipal builds a principal from a stored user
func StoredPrincipal(u *models.User) *Principal {
	return &Principal{
		ID:       u.ID,
		Role:     u.Role,
		IsActive: u.IsActive,
		User:     u,
	}
}

// IsSentinel reports whether p is the configured super-admin
func (p *Principal) IsSentinel() bool {
	return p != nil && p.User == nil && p.ID == SentinelID && p.Role == models.RoleAdmin
}

// IsAdmin reports whether p holds the ADMIN role
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// CreatorID is the value stamped into created_by columns. Records created by
// the sentinel carry no creator.
func (p *Principal) CreatorID() *int64 {
	if p == nil || p.IsSentinel() {
		return nil
	}
	id := p.ID
	return &id
}

// Owns reports whether p created a record with the given creator id
func (p *Principal) Owns(createdBy *int64) bool {
	if p == nil || createdBy == nil {
		return false
	}
	return *createdBy == p.ID && !p.IsSentinel()
}
