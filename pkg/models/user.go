package models

import (
	"strings"
	"time"
)

// Role is the coarse authority flag carried by every user
type Role string

const (
	RoleAdmin Role = "ADMIN" // Oversees all users and records
	RoleUser  Role = "USER"  // Staff account gated by a PermissionSet
)

// ParseRole normalizes a role string. An empty string yields RoleUser.
func ParseRole(s string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return RoleUser, true
	case string(RoleAdmin):
		return RoleAdmin, true
	case string(RoleUser):
		return RoleUser, true
	default:
		return "", false
	}
}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a stored staff account
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	Contact      *string   `json:"contact"`
	CreatedBy    *int64    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserSummary is the short form of a user embedded in other views
type UserSummary struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email,omitempty"`
	Contact   *string `json:"contact,omitempty"`
}

// Summary returns the short form of u
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Contact:   u.Contact,
	}
}

// UserUpdate carries a partial update. Nil fields are left unchanged.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Contact   *string
	IsActive  *bool
	Role      *Role
}

// IsEmpty reports whether the update changes nothing
func (u UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.Contact == nil && u.IsActive == nil && u.Role == nil
}

// Counts holds per-owner record totals shown on profiles and user listings
type Counts struct {
	Patients      int64 `json:"patients"`
	Mappings      int64 `json:"mappings"`
	IssueRequests int64 `json:"issueRequests"`
	CreatedUsers  int64 `json:"createdUsers,omitempty"`
}

// UserCounts holds system-wide user totals
type UserCounts struct {
	Total  int64
	Active int64
	Admins int64
}
