package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
)

const recentUsersLimit = 5

const (
	msgSentinelProfile  = "Default admin profile cannot be updated. This is a system account."
	msgSentinelPassword = "Default admin password cannot be changed. Please update the .env file to change credentials."
)

// ProfileView is the caller's own account with effective permissions
type ProfileView struct {
	ID          int64                 `json:"id"`
	FirstName   string                `json:"firstName"`
	LastName    string                `json:"lastName"`
	Username    string                `json:"username"`
	Email       string                `json:"email"`
	Role        models.Role           `json:"role"`
	IsActive    bool                  `json:"isActive"`
	Contact     *string               `json:"contact"`
	CreatedAt   *time.Time            `json:"createdAt,omitempty"`
	Permissions *models.PermissionSet `json:"permissions"`
	Counts      *models.Counts        `json:"_count,omitempty"`
	IsDefault   bool                  `json:"isDefaultAdmin,omitempty"`
}

// systemCounts returns record totals across every owner
func (s *Service) systemCounts(ctx context.Context) (*models.Counts, error) {
	var counts models.Counts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts.Patients, err = s.store.CountPatients(gctx)
		return err
	})
	g.Go(func() (err error) {
		counts.Mappings, err = s.store.CountMappings(gctx)
		return err
	})
	g.Go(func() error {
		ic, err := s.store.CountIssues(gctx, nil)
		counts.IssueRequests = ic.Total
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("system counts: %w", err))
	}
	return &counts, nil
}

// DashboardStats summarizes the system. User totals include the super-admin.
func (s *Service) DashboardStats(ctx context.Context, caller *auth.Principal) (*Dashboard, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}

	var (
		users    models.UserCounts
		issues   models.IssueCounts
		patients int64
		doctors  int64
		mappings int64
		recent   []*models.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.store.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		issues, err = s.store.CountIssues(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		patients, err = s.store.CountPatients(gctx)
		return err
	})
	g.Go(func() (err error) {
		doctors, err = s.store.CountDoctors(gctx)
		return err
	})
	g.Go(func() (err error) {
		mappings, err = s.store.CountMappings(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.store.RecentUsers(gctx, recentUsersLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("dashboard stats: %w", err))
	}

	d := &Dashboard{
		Stats: Stats{
			TotalUsers:    users.Total + 1,
			ActiveUsers:   users.Active + 1,
			InactiveUsers: users.Total - users.Active,
			AdminUsers:    users.Admins + 1,
			RegularUsers:  users.Total - users.Admins,
			TotalPatients: patients,
			TotalDoctors:  doctors,
			TotalMappings: mappings,
			PendingIssues: issues.Pending,
			TotalIssues:   issues.Total,
		},
		RecentUsers: make([]*RecentUser, 0, len(recent)),
	}
	for _, u := range recent {
		d.RecentUsers = append(d.RecentUsers, &RecentUser{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Username:  u.Username,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		})
	}
	return d, nil
}

// SessionUser is the user object returned alongside a fresh token
func (s *Service) SessionUser(ctx context.Context, p *auth.Principal) (*ProfileView, error) {
	perms, err := s.gate.EffectivePermissions(ctx, p)
	if err != nil {
		return nil, err
	}
	if p.IsSentinel() {
		v := s.sentinelProfile()
		v.Permissions = perms
		return v, nil
	}
	v := profileFromUser(p.User)
	v.Permissions = perms
	return v, nil
}

func (s *Service) sentinelProfile() *ProfileView {
	return &ProfileView{
		ID:          0,
		FirstName:   "Super",
		LastName:    "Admin",
		Username:    s.sentinelUsername,
		Email:       "admin@system.com",
		Role:        models.RoleAdmin,
		IsActive:    true,
		Permissions: models.FullPermissions(0),
		IsDefault:   true,
	}
}

func profileFromUser(u *models.User) *ProfileView {
	created := u.CreatedAt
	return &ProfileView{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		Contact:   u.Contact,
		CreatedAt: &created,
	}
}

// Profile returns the caller's own account. Admins see system-wide counts.
func (s *Service) Profile(ctx context.Context, caller *auth.Principal) (*ProfileView, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}

	if caller.IsSentinel() {
		counts, err := s.systemCounts(ctx)
		if err != nil {
			return nil, err
		}
		v := s.sentinelProfile()
		v.Counts = counts
		return v, nil
	}

	u, err := s.getUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	v := profileFromUser(u)
	v.Permissions, err = s.gate.EffectivePermissions(ctx, auth.StoredPrincipal(u))
	if err != nil {
		return nil, err
	}

	if u.Role == models.RoleAdmin {
		v.Counts, err = s.systemCounts(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	counts, err := s.store.CountsForUser(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("count records for %d: %w", u.ID, err))
	}
	counts.CreatedUsers = 0
	v.Counts = &counts
	return v, nil
}

// UpdateProfile lets a stored account change its contact
func (s *Service) UpdateProfile(ctx context.Context, caller *auth.Principal, contact *string) (*ProfileView, error) {
	if caller == nil {
		return nil, apperr.ErrTokenMissing
	}
	if caller.IsSentinel() {
		return nil, apperr.SystemAccount(msgSentinelProfile)
	}

	if contact != nil {
		c := strings.TrimSpace(*contact)
		if _, err := s.store.UpdateUser(ctx, caller.ID, models.UserUpdate{Contact: &c}); err != nil {
			return nil, translateWrite("update profile", err)
		}
	}

	return s.Profile(ctx, caller)
}

// ChangePassword replaces a stored account's password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, caller *auth.Principal, in ChangePasswordInput) error {
	if caller == nil {
		return apperr.ErrTokenMissing
	}
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return apperr.Validation("Current password and new password are required")
	}
	if len(in.NewPassword) < auth.MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("New password must be at least %d characters", auth.MinPasswordLength))
	}
	if caller.IsSentinel() {
		return apperr.SystemAccount(msgSentinelPassword)
	}

	u, err := s.getUser(ctx, caller.ID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return apperr.Validation("Current password is incorrect")
	}

	hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return apperr.Internal("Server error", err)
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return translateWrite("change password", err)
	}

	s.logger.WithField("user_id", u.ID).Info("password changed")
	return nil
}
