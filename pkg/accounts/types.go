package accounts

import (
	"time"

	"github.com/platinummonkey/carelink/pkg/models"
)

// UserView is a user as returned by the API
type UserView struct {
	*models.User
	Permissions *models.PermissionSet `json:"permissions"`
	Creator     *models.UserSummary   `json:"creator,omitempty"`
	Counts      *models.Counts        `json:"_count,omitempty"`
}

// Credentials are handed to an admin once after create or reset
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUserInput is an admin's request to create an account
type CreateUserInput struct {
	FirstName   string                  `json:"firstName"`
	LastName    string                  `json:"lastName"`
	Email       string                  `json:"email"`
	Contact     *string                 `json:"contact"`
	Role        string                  `json:"role"`
	Permissions *models.PermissionInput `json:"permissions"`
}

// CreateUserResult carries the new account and its one-time credentials
type CreateUserResult struct {
	User        *UserView   `json:"user"`
	Credentials Credentials `json:"credentials"`
	Message     string      `json:"message"`
}

// UpdateUserInput is an admin's partial update. Empty names and emails are
// ignored; an empty contact clears it.
type UpdateUserInput struct {
	FirstName   *string                 `json:"firstName"`
	LastName    *string                 `json:"lastName"`
	Email       *string                 `json:"email"`
	Contact     *string                 `json:"contact"`
	IsActive    *bool                   `json:"isActive"`
	Role        *string                 `json:"role"`
	Permissions *models.PermissionInput `json:"permissions"`
}

// ResetPasswordResult carries the regenerated credentials
type ResetPasswordResult struct {
	Message     string      `json:"message"`
	Credentials Credentials `json:"credentials"`
}

// Stats are the dashboard totals. User totals include the super-admin.
type Stats struct {
	TotalUsers    int64 `json:"totalUsers"`
	ActiveUsers   int64 `json:"activeUsers"`
	InactiveUsers int64 `json:"inactiveUsers"`
	AdminUsers    int64 `json:"adminUsers"`
	RegularUsers  int64 `json:"regularUsers"`
	TotalPatients int64 `json:"totalPatients"`
	TotalDoctors  int64 `json:"totalDoctors"`
	TotalMappings int64 `json:"totalMappings"`
	PendingIssues int64 `json:"pendingIssues"`
	TotalIssues   int64 `json:"totalIssues"`
}

// RecentUser is a dashboard row
type RecentUser struct {
	ID        int64       `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Dashboard is the admin landing summary
type Dashboard struct {
	Stats       Stats         `json:"stats"`
	RecentUsers []*RecentUser `json:"recentUsers"`
}

// ChangePasswordInput is a caller's own password change
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
