package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/rbac"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// Options configures a Service
type Options struct {
	// BcryptCost for generated and changed passwords; 0 uses bcrypt.DefaultCost
	BcryptCost int
	// SentinelUsername is shown on the super-admin's synthetic profile
	SentinelUsername string
	Logger           *observability.Logger
}

// Service implements account administration and self-service
type Service struct {
	store            storage.Store
	gate             *rbac.Gate
	bcryptCost       int
	sentinelUsername string
	logger           *observability.Logger
	now              func() time.Time
}

// NewService creates an account service
func NewService(store storage.Store, gate *rbac.Gate, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		store:            store,
		gate:             gate,
		bcryptCost:       opts.BcryptCost,
		sentinelUsername: opts.SentinelUsername,
		logger:           logger,
		now:              time.Now,
	}
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// translateWrite maps store constraint errors onto API errors
func translateWrite(op string, err error) error {
	if field, ok := storage.DuplicateField(err); ok {
		switch field {
		case "username":
			return apperr.Wrap(apperr.ErrDuplicateUsername, err)
		case "email":
			return apperr.Wrap(apperr.ErrDuplicateEmail, err)
		}
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound("User"), err)
	}
	return apperr.Internal("Server error", fmt.Errorf("%s: %w", op, err))
}

func (s *Service) getUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("get user %d: %w", id, err))
	}
	return u, nil
}

// storedPermissions returns the user's row, or nil when there is none
func (s *Service) storedPermissions(ctx context.Context, userID int64) (*models.PermissionSet, error) {
	perms, err := s.store.GetPermissions(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("get permissions %d: %w", userID, err))
	}
	return perms, nil
}

// emailTaken reports whether another account already uses email
func (s *Service) emailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal("Server error", fmt.Errorf("lookup email: %w", err))
	}
	return existing.ID != exceptID, nil
}

// view assembles the admin view of u. creators memoizes creator lookups
// across a listing.
func (s *Service) view(ctx context.Context, u *models.User, withCreated bool, creators map[int64]*models.UserSummary) (*UserView, error) {
	perms, err := s.storedPermissions(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.CountsForUser(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("count records for %d: %w", u.ID, err))
	}
	if !withCreated {
		counts.CreatedUsers = 0
	}

	v := &UserView{User: u, Permissions: perms, Counts: &counts}

	if u.CreatedBy != nil {
		summary, ok := creators[*u.CreatedBy]
		if !ok {
			creator, err := s.store.GetUser(ctx, *u.CreatedBy)
			switch {
			case errors.Is(err, storage.ErrNotFound):
			case err != nil:
				return nil, apperr.Internal("Server error", fmt.Errorf("get creator: %w", err))
			default:
				summary = &models.UserSummary{
					ID:        creator.ID,
					Username:  creator.Username,
					FirstName: creator.FirstName,
					LastName:  creator.LastName,
				}
			}
			if creators != nil {
				creators[*u.CreatedBy] = summary
			}
		}
		v.Creator = summary
	}

	return v, nil
}

// CreateUser creates a staff account with generated credentials
func (s *Service) CreateUser(ctx context.Context, caller *auth.Principal, in CreateUserInput) (*CreateUserResult, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := strings.TrimSpace(in.Email)
	if firstName == "" || lastName == "" || email == "" {
		return nil, apperr.Validation("First name, last name, and email are required")
	}

	// Unknown roles fall back to USER
	role, ok := models.ParseRole(in.Role)
	if !ok {
		role = models.RoleUser
	}

	taken, err := s.emailTaken(ctx, email, -1)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.ErrDuplicateEmail
	}

	username, err := auth.GenerateUsername(ctx, firstName, lastName, s.store.UsernameExists)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}

	password := auth.GeneratePassword(firstName)
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}

	var contact *string
	if c := trimmed(in.Contact); c != "" {
		contact = &c
	}

	u := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		Contact:      contact,
		CreatedBy:    caller.CreatorID(),
	}

	var perms *models.PermissionSet
	if role == models.RoleUser {
		perms = in.Permissions.WithDefault(0, true)
	}

	if err := s.store.CreateUser(ctx, u, perms); err != nil {
		return nil, translateWrite("create user", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    u.ID,
		"username":   u.Username,
		"role":       string(u.Role),
		"created_by": caller.ID,
	}).Info("user created")

	if perms != nil {
		perms.UserID = u.ID
	}

	return &CreateUserResult{
		User: &UserView{User: u, Permissions: perms},
		Credentials: Credentials{
			Username: username,
			Password: password,
		},
		Message: fmt.Sprintf("User created successfully. Username: %s, Password: %s", username, password),
	}, nil
}

// ListUsers returns every stored account, newest first
func (s *Service) ListUsers(ctx context.Context, caller *auth.Principal) ([]*UserView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("list users: %w", err))
	}

	creators := make(map[int64]*models.UserSummary)
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		v, err := s.view(ctx, u, false, creators)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// GetUser returns one account with its counts, including users it created
func (s *Service) GetUser(ctx context.Context, caller *auth.Principal, id int64) (*UserView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}
	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, u, true, nil)
}

// UpdateUser applies a partial update. Permissions are written only after
// the user row is updated and only when the resulting role is USER.
func (s *Service) UpdateUser(ctx context.Context, caller *auth.Principal, id int64, in UpdateUserInput) (*UserView, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}

	existing, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	var update models.UserUpdate
	if v := trimmed(in.FirstName); v != "" {
		update.FirstName = &v
	}
	if v := trimmed(in.LastName); v != "" {
		update.LastName = &v
	}
	if v := trimmed(in.Email); v != "" {
		if !strings.EqualFold(v, existing.Email) {
			taken, err := s.emailTaken(ctx, v, existing.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperr.ErrDuplicateEmail
			}
		}
		update.Email = &v
	}
	if in.Contact != nil {
		v := strings.TrimSpace(*in.Contact)
		update.Contact = &v
	}
	if in.IsActive != nil {
		update.IsActive = in.IsActive
	}
	if in.Role != nil {
		if role, ok := models.ParseRole(*in.Role); ok && strings.TrimSpace(*in.Role) != "" {
			update.Role = &role
		}
	}

	updated := existing
	if !update.IsEmpty() {
		updated, err = s.store.UpdateUser(ctx, id, update)
		if err != nil {
			return nil, translateWrite("update user", err)
		}
	}

	if in.Permissions != nil && updated.Role == models.RoleUser {
		// Flags not sent as true are cleared
		perms := in.Permissions.WithDefault(id, false)
		if err := s.store.UpsertPermissions(ctx, perms); err != nil {
			return nil, apperr.Internal("Server error", fmt.Errorf("upsert permissions: %w", err))
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    id,
		"updated_by": caller.ID,
	}).Info("user updated")

	fresh, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, fresh, false, nil)
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, caller *auth.Principal, id int64) error {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return err
	}
	if err := s.gate.GuardSelfAction(caller, id); err != nil {
		return err
	}
	if _, err := s.getUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return translateWrite("delete user", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    id,
		"deleted_by": caller.ID,
	}).Info("user deleted")
	return nil
}

// ResetPassword restores the generated password for an account
func (s *Service) ResetPassword(ctx context.Context, caller *auth.Principal, id int64) (*ResetPasswordResult, error) {
	if err := s.gate.RequireAdmin(caller); err != nil {
		return nil, err
	}

	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	password := auth.GeneratePassword(u.FirstName)
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("Server error", err)
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return nil, translateWrite("reset password", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  id,
		"reset_by": caller.ID,
	}).Info("password reset")

	return &ResetPasswordResult{
		Message:     "Password reset successfully",
		Credentials: Credentials{Username: u.Username, Password: password},
	}, nil
}

// Register is permanently disabled; accounts are created by admins
func (s *Service) Register(context.Context) error {
	return apperr.ErrRegistrationOff
}
