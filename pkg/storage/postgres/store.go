package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// Store implements storage.Store on PostgreSQL
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// mapWriteErr translates constraint violations into storage errors
func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505": // unique_violation
		field := "unknown"
		switch {
		case strings.Contains(pqErr.Constraint, "username"):
			field = "username"
		case strings.Contains(pqErr.Constraint, "email"):
			field = "email"
		}
		return &storage.DuplicateError{Field: field, Err: err}
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %s", storage.ErrNotFound, pqErr.Constraint)
	}
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = `id, first_name, last_name, username, email, password_hash, role, is_active, contact, created_by, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var contact sql.NullString
	var createdBy sql.NullInt64
	var role string

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.IsActive,
		&contact,
		&createdBy,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	u.Contact = nullStringPtr(contact)
	u.CreatedBy = nullInt64Ptr(createdBy)
	return &u, nil
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

// CreateUser inserts a user and its permission set in one transaction
func (s *Store) CreateUser(ctx context.Context, u *models.User, perms *models.PermissionSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (first_name, last_name, username, email, password_hash, role, is_active, contact, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		u.FirstName,
		u.LastName,
		u.Username,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.IsActive,
		u.Contact,
		u.CreatedBy,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapWriteErr(err))
	}

	if perms != nil {
		perms.UserID = u.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO permissions (user_id, can_manage_patients, can_manage_doctors, can_view_mappings, can_create_mappings)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, perms.UserID, perms.CanManagePatients, perms.CanManageDoctors, perms.CanViewMappings, perms.CanCreateMappings).Scan(&perms.ID)
		if err != nil {
			return fmt.Errorf("failed to create permissions: %w", mapWriteErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}
	return nil
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.getUserWhere(ctx, "id = $1", id)
}

// GetUserByUsername retrieves a user by exact username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserWhere(ctx, "username = $1", username)
}

// GetUserByEmail retrieves a user by case-insensitive email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserWhere(ctx, "LOWER(email) = LOWER($1)", email)
}

// UsernameExists reports whether username is taken
func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

func (s *Store) listUsers(ctx context.Context, query string, args ...interface{}) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListUsers returns all users newest first
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.listUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
}

// RecentUsers returns the newest limit users
func (s *Store) RecentUsers(ctx context.Context, limit int) ([]*models.User, error) {
	return s.listUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
}

// UpdateUser applies a partial update. An empty contact clears it.
func (s *Store) UpdateUser(ctx context.Context, id int64, update models.UserUpdate) (*models.User, error) {
	var role *string
	if update.Role != nil {
		r := string(*update.Role)
		role = &r
	}

	query := `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email),
			contact = CASE WHEN $5::text IS NULL THEN contact ELSE NULLIF($5::text, '') END,
			is_active = COALESCE($6, is_active),
			role = COALESCE($7, role),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.db.QueryRowContext(ctx, query,
		id,
		update.FirstName,
		update.LastName,
		update.Email,
		update.Contact,
		update.IsActive,
		role,
	))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", mapWriteErr(err))
	}
	return u, nil
}

// UpdatePassword replaces a user's password hash
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return s.execOne(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

// DeleteUser removes a user. Permissions and issues cascade; created_by
// references are nulled.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.execOne(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

// execOne runs a statement that must affect exactly one row
func (s *Store) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, mapWriteErr(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountUsers returns system-wide user totals
func (s *Store) CountUsers(ctx context.Context) (models.UserCounts, error) {
	var c models.UserCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE role = 'ADMIN')
		FROM users
	`).Scan(&c.Total, &c.Active, &c.Admins)
	if err != nil {
		return c, fmt.Errorf("failed to count users: %w", err)
	}
	return c, nil
}

// CountsForUser returns the records owned by one user
func (s *Store) CountsForUser(ctx context.Context, id int64) (models.Counts, error) {
	var c models.Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients WHERE created_by = $1),
			(SELECT COUNT(*) FROM mappings WHERE created_by = $1),
			(SELECT COUNT(*) FROM issue_requests WHERE user_id = $1),
			(SELECT COUNT(*) FROM users WHERE created_by = $1)
	`, id).Scan(&c.Patients, &c.Mappings, &c.IssueRequests, &c.CreatedUsers)
	if err != nil {
		return c, fmt.Errorf("failed to count user records: %w", err)
	}
	return c, nil
}

// GetPermissions retrieves a user's permission set
func (s *Store) GetPermissions(ctx context.Context, userID int64) (*models.PermissionSet, error) {
	var p models.PermissionSet
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, can_manage_patients, can_manage_doctors, can_view_mappings, can_create_mappings
		FROM permissions
		WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.CanManagePatients, &p.CanManageDoctors, &p.CanViewMappings, &p.CanCreateMappings)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	return &p, nil
}

// UpsertPermissions creates or replaces a user's permission set
func (s *Store) UpsertPermissions(ctx context.Context, perms *models.PermissionSet) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO permissions (user_id, can_manage_patients, can_manage_doctors, can_view_mappings, can_create_mappings)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			can_manage_patients = EXCLUDED.can_manage_patients,
			can_manage_doctors = EXCLUDED.can_manage_doctors,
			can_view_mappings = EXCLUDED.can_view_mappings,
			can_create_mappings = EXCLUDED.can_create_mappings
		RETURNING id
	`, perms.UserID, perms.CanManagePatients, perms.CanManageDoctors, perms.CanViewMappings, perms.CanCreateMappings).Scan(&perms.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert permissions: %w", mapWriteErr(err))
	}
	return nil
}
